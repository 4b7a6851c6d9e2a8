package payroll_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"payroll-gateway/internal/config"
	"payroll-gateway/internal/payroll"
	"payroll-gateway/internal/saib"
	"payroll-gateway/internal/storage"
)

type fakeBank struct {
	submitErr  error
	inquireErr error
	submitted  []saib.PaymentRequest
	inquiries  []saib.InquiryRequest
}

func (f *fakeBank) SubmitPayment(ctx context.Context, req saib.PaymentRequest) (*saib.PaymentResponse, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	resp := &saib.PaymentResponse{}
	resp.Data.StatusCode = "OK"
	resp.Data.StatusDesc = "accepted"
	resp.Data.ReferenceNumber = "SAIB000001"
	return resp, nil
}

func (f *fakeBank) InquirePayment(ctx context.Context, req saib.InquiryRequest) (*saib.InquiryResponse, error) {
	f.inquiries = append(f.inquiries, req)
	if f.inquireErr != nil {
		return nil, f.inquireErr
	}
	resp := &saib.InquiryResponse{}
	resp.Data.StatusCode = "OK"
	resp.Data.StatusDesc = "processed"
	return resp, nil
}

func (f *fakeBank) FetchSignedFile(ctx context.Context, apiReference string) (*saib.SignedFileResponse, error) {
	resp := &saib.SignedFileResponse{}
	resp.Data.FileName = apiReference + ".sig"
	resp.Data.FileContent = "c2lnbmVk"
	return resp, nil
}

func testService(t *testing.T, bank *fakeBank) *payroll.Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Bank.CompanyCode = "FLNT01"
	cfg.Bank.MOLEstablishmentID = "1-123456"
	cfg.Payroll.DebtorAccount = "SA0345000000001234567890"
	cfg.Payroll.AdjustmentCodes = []string{"EAP", "FTA", "OTADD", "OAP"}
	return payroll.NewService(cfg, storage.NewMemory(), bank, zap.NewNop())
}

func runWithBasic(t *testing.T) payroll.Run {
	t.Helper()
	return payroll.Run{
		ID: "RUN-1",
		Employees: []payroll.Employee{
			{ID: "E1", Name: "Sara Ahmed", IBAN: "SA0345000000001234567890", NationalID: "1012345678",
				Payslip: []payroll.PayslipLine{{Code: "BASIC", Amount: decimal.NewFromInt(4000)}}},
		},
	}
}

func TestSubmitLifecycle(t *testing.T) {
	bank := &fakeBank{}
	svc := testService(t, bank)

	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	id := batches[0].ID

	sent, err := svc.Submit(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if sent.State != payroll.StateSent {
		t.Fatalf("want sent, got %s", sent.State)
	}
	if sent.APIReference == "" {
		t.Fatal("api_reference must be minted at submission")
	}
	if sent.BankReference != "SAIB000001" {
		t.Fatalf("bank reference not recorded: %+v", sent)
	}
	if len(bank.submitted) != 1 {
		t.Fatalf("want 1 bank call, got %d", len(bank.submitted))
	}
	req := bank.submitted[0]
	if req.APIReference != sent.APIReference {
		t.Fatal("bank request must carry the stored reference")
	}
	if req.PayrollTransactionCount != 1 || req.PayrollTransactionAmount != "4000.00" {
		t.Fatalf("unexpected bank request: %+v", req)
	}
	lines, err := payroll.DecompressLines(req.PayrollDetails)
	if err != nil || len(lines) != 1 {
		t.Fatalf("details must decompress to the batch lines: %v", err)
	}

	confirmed, err := svc.Inquire(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if confirmed.State != payroll.StateConfirmed {
		t.Fatalf("want confirmed, got %s", confirmed.State)
	}
	if confirmed.Inquiry == "" {
		t.Fatal("inquiry text must be recorded")
	}

	if _, err := svc.Submit(context.Background(), id); !errors.Is(err, payroll.ErrAlreadyConfirmed) {
		t.Fatalf("confirmed batch must refuse submission, got %v", err)
	}
}

func TestSubmitFailureRecordsAndReusesReference(t *testing.T) {
	bank := &fakeBank{submitErr: &saib.TransportError{Kind: "timeout", Hint: "test", Err: errors.New("deadline exceeded")}}
	svc := testService(t, bank)

	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	id := batches[0].ID

	failed, err := svc.Submit(context.Background(), id)
	if err == nil {
		t.Fatal("want submission error")
	}
	if failed.State != payroll.StateFailed {
		t.Fatalf("want failed, got %s", failed.State)
	}
	if failed.Response == "" {
		t.Fatal("failure text must be recorded on the batch")
	}
	firstRef := failed.APIReference
	if firstRef == "" {
		t.Fatal("reference must survive a failed submission")
	}

	// Submitting a failed batch directly is refused.
	if _, err := svc.Submit(context.Background(), id); !errors.Is(err, payroll.ErrNotSubmittable) {
		t.Fatalf("failed batch must be reset first, got %v", err)
	}

	reset, err := svc.Reset(id)
	if err != nil {
		t.Fatal(err)
	}
	if reset.State != payroll.StateDraft {
		t.Fatalf("want draft after reset, got %s", reset.State)
	}
	if reset.APIReference != firstRef {
		t.Fatal("reset must keep the original reference")
	}

	bank.submitErr = nil
	sent, err := svc.Submit(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if sent.APIReference != firstRef {
		t.Fatalf("retry minted a new reference: %s vs %s", sent.APIReference, firstRef)
	}
	if len(bank.submitted) != 2 {
		t.Fatalf("want 2 bank calls, got %d", len(bank.submitted))
	}
	if bank.submitted[1].APIReference != firstRef {
		t.Fatal("retried bank request must reuse the original reference")
	}
}

func TestInquiryFailureMarksBatchFailed(t *testing.T) {
	bank := &fakeBank{inquireErr: &saib.BankError{Code: "PAY009", Desc: "batch rejected"}}
	svc := testService(t, bank)

	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	id := batches[0].ID
	if _, err := svc.Submit(context.Background(), id); err != nil {
		t.Fatal(err)
	}

	failed, err := svc.Inquire(context.Background(), id)
	if err == nil {
		t.Fatal("want inquiry error")
	}
	if failed.State != payroll.StateFailed {
		t.Fatalf("want failed, got %s", failed.State)
	}
	if failed.Response == "" {
		t.Fatal("bank rejection text must be recorded")
	}
}

func TestInquireRequiresSentState(t *testing.T) {
	svc := testService(t, &fakeBank{})
	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Inquire(context.Background(), batches[0].ID); !errors.Is(err, payroll.ErrNotSent) {
		t.Fatalf("draft batch cannot be inquired, got %v", err)
	}
}

func TestResetRequiresFailedState(t *testing.T) {
	svc := testService(t, &fakeBank{})
	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reset(batches[0].ID); !errors.Is(err, payroll.ErrNotResettable) {
		t.Fatalf("draft batch cannot be reset, got %v", err)
	}
}

func TestSignedFile(t *testing.T) {
	svc := testService(t, &fakeBank{})
	batches, err := svc.BuildRun(runWithBasic(t))
	if err != nil {
		t.Fatal(err)
	}
	id := batches[0].ID

	if _, err := svc.SignedFile(context.Background(), id); !errors.Is(err, payroll.ErrNotSent) {
		t.Fatalf("unsubmitted batch has no signed file, got %v", err)
	}

	if _, err := svc.Submit(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	file, err := svc.SignedFile(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if file.Data.FileName == "" {
		t.Fatal("signed file response is empty")
	}
}
