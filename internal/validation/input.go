package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinJobTitleLength       = 3
	MaxJobTitleLength       = 200
	MaxJobDescriptionLength = 5000
	MaxSkillLength          = 50
	MaxSkillsCount          = 20
	MaxAddressLength        = 300
	MaxCancelReasonLength   = 1000
	MaxReviewTitleLength    = 200
	MaxReviewContentLength  = 5000
	MaxResponseLength       = 2000
	MaxFlagReasonLength     = 500
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateJobTitle проверяет заголовок задания.
func ValidateJobTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("заголовок задания не может быть пустым")
	}
	return ValidateLength("заголовок задания", strings.TrimSpace(title), MinJobTitleLength, MaxJobTitleLength)
}

// ValidateJobDescription проверяет описание задания.
func ValidateJobDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("описание задания не может быть пустым")
	}
	return ValidateLength("описание задания", strings.TrimSpace(description), 0, MaxJobDescriptionLength)
}

// ValidateBudget проверяет бюджетную вилку в минорных единицах валюты.
func ValidateBudget(budgetMin, budgetMax int64) error {
	if budgetMin < 0 || budgetMax < 0 {
		return fmt.Errorf("бюджет не может быть отрицательным")
	}
	if budgetMin > budgetMax {
		return fmt.Errorf("минимальный бюджет не может быть больше максимального")
	}
	return nil
}

// ValidateSkills проверяет список требуемых навыков.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("слишком много навыков (максимум %d)", MaxSkillsCount)
	}

	seen := make(map[string]bool)
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			return fmt.Errorf("навык не может быть пустым")
		}
		if utf8.RuneCountInString(skill) > MaxSkillLength {
			return fmt.Errorf("навык не может быть длиннее %d символов", MaxSkillLength)
		}

		skillLower := strings.ToLower(skill)
		if seen[skillLower] {
			return fmt.Errorf("навык '%s' указан дважды", skill)
		}
		seen[skillLower] = true
	}

	return nil
}

// ValidateCancelReason проверяет причину отмены задания.
func ValidateCancelReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("укажите причину отмены")
	}
	return ValidateLength("причина отмены", reason, 0, MaxCancelReasonLength)
}

// ValidateReviewContent проверяет текст отзыва.
func ValidateReviewContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("текст отзыва не может быть пустым")
	}
	if utf8.RuneCountInString(content) > MaxReviewContentLength {
		return fmt.Errorf("отзыв слишком длинный (максимум %d символов)", MaxReviewContentLength)
	}
	return nil
}
