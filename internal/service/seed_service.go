package service

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository"
)

// SeedService генерирует демо-данные для разработки и тестирования.
type SeedService struct {
	userRepo *repository.UserRepository
	jobRepo  *repository.JobRepository
	matcher  *MatcherService
}

// NewSeedService создаёт новый сервис для генерации данных.
func NewSeedService(userRepo *repository.UserRepository, jobRepo *repository.JobRepository, matcher *MatcherService) *SeedService {
	return &SeedService{
		userRepo: userRepo,
		jobRepo:  jobRepo,
		matcher:  matcher,
	}
}

// SeedData генерирует демо-пользователей и задания вокруг центра Москвы.
func (s *SeedService) SeedData(ctx context.Context, numUsers, numJobs int) error {
	users, err := s.generateUsers(ctx, numUsers)
	if err != nil {
		return fmt.Errorf("seed service: не удалось создать пользователей: %w", err)
	}

	var clients []*models.User
	for _, user := range users {
		if user.AccountType == models.AccountTypeClient || user.AccountType == models.AccountTypeBoth {
			clients = append(clients, user)
		}
	}

	if err := s.generateJobs(ctx, clients, numJobs); err != nil {
		return fmt.Errorf("seed service: не удалось создать задания: %w", err)
	}

	return nil
}

// Центр Москвы, вокруг которого разбрасываются демо-координаты.
const (
	seedCenterLat = 55.7558
	seedCenterLon = 37.6173
)

// jitter смещает координату в пределах примерно +-10 км.
func jitter() float64 {
	return (rand.Float64() - 0.5) * 0.18
}

func (s *SeedService) generateUsers(ctx context.Context, count int) ([]*models.User, error) {
	firstNames := []string{
		"Александр", "Дмитрий", "Максим", "Сергей", "Андрей", "Алексей", "Артём", "Илья",
		"Анна", "Мария", "Елена", "Ольга", "Татьяна", "Наталья", "Ирина", "Светлана",
	}
	lastNames := []string{
		"Иванов", "Петров", "Смирнов", "Козлов", "Соколов", "Попов", "Лебедев", "Новиков",
		"Морозов", "Волков", "Васильев", "Зайцев", "Павлов", "Семёнов", "Фёдоров", "Белов",
	}
	domains := []string{"gmail.com", "yandex.ru", "mail.ru", "outlook.com"}

	passwordHash, _ := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.DefaultCost)

	accountTypes := []string{
		models.AccountTypeClient,
		models.AccountTypeHelper,
		models.AccountTypeHelper,
		models.AccountTypeBoth,
	}

	var users []*models.User
	for i := 0; i < count; i++ {
		firstName := firstNames[rand.Intn(len(firstNames))]
		lastName := lastNames[rand.Intn(len(lastNames))]
		username := fmt.Sprintf("%s_%s_%d", firstName, lastName, rand.Intn(10000))
		email := fmt.Sprintf("user%d_%d@%s", i, rand.Intn(10000), domains[rand.Intn(len(domains))])

		lat := seedCenterLat + jitter()
		lon := seedCenterLon + jitter()
		payout := fmt.Sprintf("acct_demo_%d", rand.Intn(1000000))

		user := &models.User{
			Email:         email,
			Username:      username,
			PasswordHash:  string(passwordHash),
			AccountType:   accountTypes[rand.Intn(len(accountTypes))],
			IsActive:      true,
			IsVerified:    rand.Intn(3) != 0,
			Latitude:      &lat,
			Longitude:     &lon,
			PayoutAccount: &payout,
		}

		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}

		// Исполнители сразу попадают в гео-индекс.
		if user.CanAcceptJobs() && s.matcher != nil {
			_ = s.matcher.UpdateLocation(ctx, user.ID, lat, lon)
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *SeedService) generateJobs(ctx context.Context, clients []*models.User, count int) error {
	if len(clients) == 0 {
		return nil
	}

	titles := []string{
		"Собрать шкаф из IKEA",
		"Помочь с переездом",
		"Повесить полки и карниз",
		"Выгулять собаку на выходных",
		"Починить протекающий кран",
		"Убрать квартиру после ремонта",
		"Настроить роутер и телевизор",
		"Покрасить забор на даче",
		"Привезти стройматериалы",
		"Посидеть с котом неделю",
	}
	descriptions := []string{
		"Нужна помощь в ближайшие дни, инструменты есть.",
		"Работа на пару часов, оплата сразу после выполнения.",
		"Подробности обсудим в чате, фото прилагаю.",
		"Желательно с опытом подобных работ.",
	}
	skills := [][]string{
		{"сборка мебели"},
		{"переезд", "грузоперевозки"},
		{"мелкий ремонт"},
		{"уборка"},
		{"сантехника"},
		{"электрика", "настройка техники"},
	}

	for i := 0; i < count; i++ {
		client := clients[rand.Intn(len(clients))]

		budgetMin := int64((rand.Intn(10) + 1) * 1000)
		budgetMax := budgetMin + int64(rand.Intn(5)+1)*1000

		job := &models.Job{
			CreatorID:        client.ID,
			Title:            titles[rand.Intn(len(titles))],
			Description:      descriptions[rand.Intn(len(descriptions))],
			Status:           models.JobStatusOpen,
			PaymentStatus:    models.JobPaymentStatusUnpaid,
			BudgetMin:        budgetMin,
			BudgetMax:        budgetMax,
			BudgetNegotiable: rand.Intn(2) == 0,
			Latitude:         seedCenterLat + jitter(),
			Longitude:        seedCenterLon + jitter(),
			Address:          fmt.Sprintf("Москва, демо-адрес %d", rand.Intn(200)),
			Skills:           skills[rand.Intn(len(skills))],
			VerifiedOnly:     rand.Intn(5) == 0,
		}

		if err := s.jobRepo.Create(ctx, job); err != nil {
			return err
		}
	}

	return nil
}
