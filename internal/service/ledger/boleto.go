package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/money"
)

const (
	documentNumberLength      = 12
	maxDocumentNumberAttempts = 5
)

type PayBoletoResult struct {
	Message string
	Boleto  domain.Boleto
}

// CreateBoleto issues a PENDING boleto for issuerID. A document number that
// collides with an existing one is regenerated; ErrConflict is returned
// once the attempts run out.
func (s *Service) CreateBoleto(ctx context.Context, value money.Money, issuerID uuid.UUID) (*domain.Boleto, error) {
	if err := validateAmount(value); err != nil {
		return nil, fmt.Errorf("CreateBoleto: %w", err)
	}

	if _, err := s.users.GetByID(ctx, issuerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("CreateBoleto: %w", domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("CreateBoleto: %w", err)
	}

	for attempt := 1; attempt <= maxDocumentNumberAttempts; attempt++ {
		doc, err := s.newDocumentNumber()
		if err != nil {
			return nil, fmt.Errorf("CreateBoleto: %w", err)
		}

		b := &domain.Boleto{
			ID:             uuid.New(),
			DocumentNumber: doc,
			Value:          value,
			IssuerID:       issuerID,
			Status:         domain.BoletoStatusPending,
			CreatedAt:      s.now(),
		}

		err = s.boletos.Create(ctx, b)
		if errors.Is(err, domain.ErrConflict) {
			logging.FromContext(ctx).Warn("boleto document number collision", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("CreateBoleto: %w", err)
		}

		logging.FromContext(ctx).Info("boleto created",
			"boleto_id", b.ID,
			"issuer_id", issuerID,
			"value", value.String(),
		)
		s.publish(ctx, events.New(events.TypeBoletoCreated, boletoEvent(b)))
		return b, nil
	}

	return nil, fmt.Errorf("CreateBoleto: document number: %w", domain.ErrConflict)
}

// PayBoleto settles a PENDING boleto on behalf of payerID. The issuer may
// not pay their own boleto and a PAID boleto cannot be paid again.
func (s *Service) PayBoleto(ctx context.Context, payerID uuid.UUID, documentNumber string) (*PayBoletoResult, error) {
	if documentNumber == "" {
		return nil, fmt.Errorf("PayBoleto: document number: %w", domain.ErrInvalidInput)
	}

	if _, err := s.users.GetByID(ctx, payerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("PayBoleto: %w", domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("PayBoleto: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("PayBoleto: begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := s.boletos.GetForUpdate(ctx, tx, documentNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("PayBoleto: %w", domain.ErrBoletoNotFound)
		}
		return nil, fmt.Errorf("PayBoleto: %w", err)
	}

	if b.IssuerID == payerID {
		return nil, fmt.Errorf("PayBoleto: issuer cannot pay own boleto: %w", domain.ErrInvalidOperation)
	}
	if b.Status != domain.BoletoStatusPending {
		return nil, fmt.Errorf("PayBoleto: %w", domain.ErrBoletoAlreadyPaid)
	}

	paidAt := s.now()
	if err := s.boletos.MarkPaid(ctx, tx, b.ID, payerID, paidAt); err != nil {
		return nil, fmt.Errorf("PayBoleto: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PayBoleto: commit: %w", err)
	}

	b.Status = domain.BoletoStatusPaid
	b.PayerID = &payerID
	b.PaidAt = &paidAt

	logging.FromContext(ctx).Info("boleto paid",
		"boleto_id", b.ID,
		"payer_id", payerID,
	)
	s.publish(ctx, events.New(events.TypeBoletoPaid, boletoEvent(b)))

	return &PayBoletoResult{
		Message: "Boleto paid successfully",
		Boleto:  *b,
	}, nil
}

func boletoEvent(b *domain.Boleto) events.BoletoChanged {
	return events.BoletoChanged{
		BoletoID:       b.ID,
		DocumentNumber: b.DocumentNumber,
		Value:          b.Value.String(),
		Status:         string(b.Status),
		IssuerID:       b.IssuerID,
		PayerID:        b.PayerID,
	}
}

func generateDocumentNumber() (string, error) {
	digits := make([]byte, documentNumberLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateDocumentNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
