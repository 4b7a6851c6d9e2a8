package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"payroll-gateway/internal/config"
	"payroll-gateway/internal/saib"
)

// BankClient is the slice of the transport layer the payroll service needs.
type BankClient interface {
	SubmitPayment(ctx context.Context, req saib.PaymentRequest) (*saib.PaymentResponse, error)
	InquirePayment(ctx context.Context, req saib.InquiryRequest) (*saib.InquiryResponse, error)
	FetchSignedFile(ctx context.Context, apiReference string) (*saib.SignedFileResponse, error)
}

// Store persists batches. Update runs fn inside the store's critical
// section and persists the mutated batch when fn succeeds.
type Store interface {
	Save(b *Batch) error
	Get(id string) (*Batch, error)
	List() []*Batch
	Update(id string, fn func(b *Batch) error) (*Batch, error)
}

// Service orchestrates the submission pipeline: build -> verify -> sign and
// transmit -> parse, with the state transition applied only at the end.
// Every failure path records the error text on the batch for operator
// review; nothing is swallowed.
type Service struct {
	cfg     *config.Config
	store   Store
	bank    BankClient
	builder *Builder
	log     *zap.Logger
	now     func() time.Time
}

func NewService(cfg *config.Config, store Store, bank BankClient, log *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		bank:    bank,
		builder: NewBuilder(cfg.Payroll),
		log:     log,
		now:     time.Now,
	}
}

// BuildRun builds and persists the batches for a payroll run.
func (s *Service) BuildRun(run Run) ([]*Batch, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.ValueDate.IsZero() {
		run.ValueDate = s.now()
	}
	batches, err := s.builder.Build(run)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if err := s.store.Save(b); err != nil {
			return nil, err
		}
	}
	s.log.Info("payroll run built",
		zap.String("run_id", run.ID),
		zap.Int("batches", len(batches)),
		zap.Int("employees", len(run.Employees)),
	)
	return batches, nil
}

func (s *Service) Get(id string) (*Batch, error) { return s.store.Get(id) }

func (s *Service) List() []*Batch { return s.store.List() }

// Submit sends a batch to the bank. A draft batch gets its api_reference
// minted and persisted before the network call; a retried batch reuses the
// stored reference so the bank never posts the run twice.
func (s *Service) Submit(ctx context.Context, id string) (*Batch, error) {
	batch, err := s.store.Update(id, func(b *Batch) error {
		switch b.State {
		case StateConfirmed:
			return ErrAlreadyConfirmed
		case StateFailed:
			return fmt.Errorf("%w: state is %s, reset it first", ErrNotSubmittable, b.State)
		}
		if b.APIReference == "" {
			b.APIReference = s.mintReference()
		}
		return b.VerifyTotals()
	})
	if err != nil {
		return batch, err
	}

	details, err := CompressLines(batch.Lines)
	if err != nil {
		return batch, err
	}
	req := saib.PaymentRequest{
		CompanyCode:              s.cfg.Bank.CompanyCode,
		APIReference:             batch.APIReference,
		ValueDate:                batch.ValueDate,
		DebtorAccount:            batch.DebtorAccount,
		MOLEstablishmentID:       s.cfg.Bank.MOLEstablishmentID,
		PayrollTransactionCount:  len(batch.Lines),
		PayrollTransactionAmount: batch.DeclaredTotal,
		PayrollDetails:           details,
	}

	resp, bankErr := s.bank.SubmitPayment(ctx, req)
	if bankErr != nil {
		failed, _ := s.transition(id, StateFailed, bankErr.Error())
		s.log.Error("batch submission failed",
			zap.String("batch_id", id),
			zap.String("api_reference", batch.APIReference),
			zap.Error(bankErr),
		)
		return failed, bankErr
	}

	sent, err := s.store.Update(id, func(b *Batch) error {
		b.State = StateSent
		b.BankReference = resp.Data.ReferenceNumber
		b.Response = resp.Data.StatusDesc
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("batch sent",
		zap.String("batch_id", id),
		zap.String("api_reference", sent.APIReference),
		zap.String("bank_reference", sent.BankReference),
	)
	return sent, nil
}

// Inquire polls the bank for the status of a sent batch. Success confirms
// the batch; a bank rejection or transport failure moves it to failed with
// the error text recorded.
func (s *Service) Inquire(ctx context.Context, id string) (*Batch, error) {
	batch, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if batch.State != StateSent {
		return batch, fmt.Errorf("%w: state is %s", ErrNotSent, batch.State)
	}

	resp, bankErr := s.bank.InquirePayment(ctx, saib.InquiryRequest{
		CompanyCode:  s.cfg.Bank.CompanyCode,
		APIReference: batch.APIReference,
	})
	if bankErr != nil {
		failed, _ := s.transition(id, StateFailed, bankErr.Error())
		return failed, bankErr
	}

	inquiry := resp.Data.StatusDesc
	if resp.Data.PayrollDetails != "" {
		inquiry = strings.TrimSpace(inquiry + "\n" + DecodeDetail(resp.Data.PayrollDetails))
	}
	confirmed, err := s.store.Update(id, func(b *Batch) error {
		b.State = StateConfirmed
		b.Inquiry = inquiry
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("batch confirmed", zap.String("batch_id", id), zap.String("api_reference", confirmed.APIReference))
	return confirmed, nil
}

// Reset moves a failed batch back to draft for resubmission. The stored
// api_reference is kept so the retry is idempotent at the bank.
func (s *Service) Reset(id string) (*Batch, error) {
	return s.store.Update(id, func(b *Batch) error {
		if b.State != StateFailed {
			return fmt.Errorf("%w: state is %s", ErrNotResettable, b.State)
		}
		b.State = StateDraft
		b.UpdatedAt = s.now()
		return nil
	})
}

// SignedFile fetches the bank-signed confirmation file for a batch that
// has been submitted.
func (s *Service) SignedFile(ctx context.Context, id string) (*saib.SignedFileResponse, error) {
	batch, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if batch.APIReference == "" {
		return nil, fmt.Errorf("%w: batch was never submitted", ErrNotSent)
	}
	return s.bank.FetchSignedFile(ctx, batch.APIReference)
}

func (s *Service) transition(id string, state State, response string) (*Batch, error) {
	return s.store.Update(id, func(b *Batch) error {
		b.State = state
		b.Response = response
		b.UpdatedAt = s.now()
		return nil
	})
}

// mintReference generates the bank-facing reference once per batch:
// company code, timestamp, and a short random suffix.
func (s *Service) mintReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s%s", s.cfg.Bank.CompanyCode, s.now().Format("20060102150405"), strings.ToUpper(suffix))
}
