package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignatzorin/localhelp-backend/internal/pkg/apperror"
)

// Intent результат создания платёжного намерения на стороне шлюза.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Transfer результат перевода средств на внешний счёт исполнителя.
type Transfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Статусы платёжного намерения, возвращаемые шлюзом.
const (
	IntentStatusSucceeded  = "succeeded"
	IntentStatusProcessing = "processing"
	IntentStatusFailed     = "failed"
	IntentStatusCanceled   = "canceled"
)

// Client реализует доступ к платёжному шлюзу через Stripe-совместимый API.
// Все суммы — в минорных единицах валюты.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента шлюза.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateIntent создаёт платёжное намерение на указанную сумму.
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent Intent
	if err := c.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// RetrieveIntent возвращает текущий статус платёжного намерения.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return "", fmt.Errorf("gateway: не удалось сформировать запрос: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var intent Intent
	if err := c.do(req, &intent); err != nil {
		return "", err
	}
	return intent.Status, nil
}

// CreateTransfer переводит сумму на внешний счёт исполнителя.
func (c *Client) CreateTransfer(ctx context.Context, amount int64, currency, destination string, metadata map[string]string) (*Transfer, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("destination", destination)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var transfer Transfer
	if err := c.post(ctx, "/v1/transfers", form, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// Refund возвращает средства клиенту по платёжному намерению.
func (c *Client) Refund(ctx context.Context, intentID string) error {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	return c.post(ctx, "/v1/refunds", form, &struct{}{})
}

// post выполняет form-encoded POST запрос к шлюзу.
func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("gateway: не удалось сформировать запрос: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

// do выполняет запрос и разбирает ответ. Сетевые сбои отличаются
// от отказов шлюза: первые можно повторить, вторые терминальны.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGatewayError, "платёжный шлюз недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return apperror.New(apperror.ErrCodeGatewayError,
			fmt.Sprintf("платёжный шлюз вернул статус %d", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var gwErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&gwErr)
		msg := gwErr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("платёж отклонён шлюзом (статус %d)", resp.StatusCode)
		}
		return apperror.New(apperror.ErrCodePaymentFailed, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGatewayError, "не удалось разобрать ответ шлюза")
	}
	return nil
}
