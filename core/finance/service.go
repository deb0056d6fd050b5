package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/student"
)

const (
	// defaults for imported payments
	UnknownReference = "Unknown"

	descOpeningBalance = "Opening balance"
	descBroughtForward = "Balance brought forward"
	descAdjustment     = "Balance adjustment"
	receiptSeq         = "receipt"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrPaymentFailed = errors.New("payment request failed")
)

type (
	Repository interface {
		// AddEntries appends entries to the ledger.
		AddEntries(ctx context.Context, entries ...Entry) error
		// QueryEntries returns the matching entries in the order they were added.
		QueryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
		// NextSequence increments & returns the named counter.
		NextSequence(ctx context.Context, name string) (int, error)
	}

	// PaymentNotifier is told about every recorded payment, eg. to text a confirmation.
	PaymentNotifier interface {
		PaymentRecorded(ctx context.Context, s student.Student, r Receipt) error
	}

	Options struct {
		Term         string
		Year         int
		FeeStructure []FeeItem
	}

	Service struct {
		repo     Repository
		students *student.Service
		gateway  core.PaymentGateway
		notifier PaymentNotifier
		log      core.Logger
		opts     Options
	}
)

func NewService(repo Repository, students *student.Service, gateway core.PaymentGateway, log core.Logger, opts Options) *Service {
	if opts.FeeStructure == nil {
		opts.FeeStructure = DefaultFeeStructure
	}
	return &Service{repo: repo, students: students, gateway: gateway, log: log, opts: opts}
}

// SetNotifier registers the PaymentNotifier. Notification failures are logged, never returned.
func (svc *Service) SetNotifier(n PaymentNotifier) {
	svc.notifier = n
}

func (svc *Service) FeeStructure() []FeeItem {
	return svc.opts.FeeStructure
}

func (svc *Service) newEntry(kind, studentID string, amount decimal.Decimal) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Kind:      kind,
		StudentID: studentID,
		Amount:    amount,
		Term:      svc.opts.Term,
		Year:      svc.opts.Year,
		CreatedAt: NowFunc().UTC(),
	}
}

func (svc *Service) charge(ctx context.Context, studentID, term string, year int, items ...FeeItem) error {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if !item.Amount.IsPositive() {
			continue
		}
		e := svc.newEntry(KindCharge, studentID, item.Amount)
		e.Description = item.Description
		e.Term = term
		e.Year = year
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil
	}
	return svc.repo.AddEntries(ctx, entries...)
}

// RecordPayment appends a validated payment to the ledger and returns the receipt.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (Receipt, error) {
	s, err := svc.students.GetByID(ctx, np.StudentID)
	if err != nil {
		return Receipt{}, err
	}
	seq, err := svc.repo.NextSequence(ctx, receiptSeq)
	if err != nil {
		return Receipt{}, err
	}

	e := svc.newEntry(KindPayment, s.ID, np.Amount)
	e.ReceiptNo = fmt.Sprintf("RCP-%d-%05d", e.CreatedAt.Year(), seq)
	e.Method = np.Method
	e.Reference = np.Reference
	if e.Reference == "" {
		e.Reference = UnknownReference
	}
	if err := svc.repo.AddEntries(ctx, e); err != nil {
		return Receipt{}, err
	}

	bal, err := svc.Balance(ctx, s.ID)
	if err != nil {
		return Receipt{}, err
	}
	s.FeeBalance = bal
	r := Receipt{Payment: paymentView(e, s), Balance: bal}

	if svc.notifier != nil {
		if err := svc.notifier.PaymentRecorded(ctx, s, r); err != nil && svc.log != nil {
			svc.log.Error(fmt.Sprintf("payment confirmation for %s failed", r.Payment.ReceiptNo), err)
		}
	}
	return r, nil
}

// RequestMpesa pushes a payment prompt to the parent's phone and records the payment once approved.
func (svc *Service) RequestMpesa(ctx context.Context, mr MpesaRequest) (Receipt, error) {
	s, err := svc.students.GetByID(ctx, mr.StudentID)
	if err != nil {
		return Receipt{}, err
	}
	phone := mr.Phone
	if phone == "" {
		phone = s.ParentPhone
	}
	ref, err := svc.gateway.RequestPayment(ctx, student.NormalizePhone(phone), mr.Amount.IntPart(), s.AdmNo)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Receipt{}, errors.Wrap(ctxErr, "waiting for M-Pesa confirmation")
		}
		return Receipt{}, errors.Wrap(ErrPaymentFailed, err.Error())
	}
	return svc.RecordPayment(ctx, NewPayment{
		StudentID: s.ID,
		Amount:    mr.Amount,
		Method:    MethodMpesa,
		Reference: ref,
	})
}

// Charge bills items to a student for the current term.
func (svc *Service) Charge(ctx context.Context, studentID string, items ...FeeItem) error {
	return svc.charge(ctx, studentID, svc.opts.Term, svc.opts.Year, items...)
}

// OpeningBalance charges the balance a student joins the school with.
func (svc *Service) OpeningBalance(ctx context.Context, studentID string, amount decimal.Decimal) error {
	return svc.Charge(ctx, studentID, FeeItem{Description: descOpeningBalance, Amount: amount})
}

// SetBalance appends the adjustment that brings a student's balance to target, if any.
func (svc *Service) SetBalance(ctx context.Context, studentID string, target decimal.Decimal) error {
	target = floor(target)
	curr, err := svc.Balance(ctx, studentID)
	if err != nil {
		return err
	}
	if curr.Equal(target) {
		return nil
	}
	e := svc.newEntry(KindAdjustment, studentID, target.Sub(curr))
	e.Description = descAdjustment
	return svc.repo.AddEntries(ctx, e)
}

// BillGrade charges the fee structure to every student of a grade and returns how many were billed.
func (svc *Service) BillGrade(ctx context.Context, ni NewInvoice) (int, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{Grade: ni.Grade})
	if err != nil {
		return 0, err
	}
	term, year := svc.opts.Term, svc.opts.Year
	if ni.Term != "" {
		term = ni.Term
	}
	if ni.Year != 0 {
		year = ni.Year
	}

	for _, s := range students {
		if err := svc.charge(ctx, s.ID, term, year, svc.opts.FeeStructure...); err != nil {
			return 0, err
		}
	}
	return len(students), nil
}

// Balance is the current balance of a student.
func (svc *Service) Balance(ctx context.Context, studentID string) (decimal.Decimal, error) {
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{StudentIDs: []string{studentID}})
	if err != nil {
		return decimal.Zero, err
	}
	return Balance(entries), nil
}

// AttachBalances fills the FeeBalance of students.
func (svc *Service) AttachBalances(ctx context.Context, students []student.Student) ([]student.Student, error) {
	if len(students) == 0 {
		return students, nil
	}
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{StudentIDs: ids})
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string][]Entry, len(students))
	for _, e := range entries {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], e)
	}
	for i := range students {
		students[i].FeeBalance = Balance(byStudent[students[i].ID])
	}
	return students, nil
}

// Payments lists the payments matching filter, oldest first.
func (svc *Service) Payments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	ef := EntryFilter{Kinds: []string{KindPayment}}
	if filter.StudentID != "" {
		ef.StudentIDs = []string{filter.StudentID}
	}
	entries, err := svc.repo.QueryEntries(ctx, ef)
	if err != nil {
		return nil, err
	}
	students, err := svc.studentIndex(ctx)
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(entries))
	for _, e := range entries {
		if !filter.Match(e) {
			continue
		}
		payments = append(payments, paymentView(e, students[e.StudentID]))
	}
	return payments, nil
}

// Stats aggregates the balances of the enrolled students & every payment ever recorded.
func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{})
	if err != nil {
		return Stats{}, err
	}
	if students, err = svc.AttachBalances(ctx, students); err != nil {
		return Stats{}, err
	}
	payments, err := svc.Payments(ctx, PaymentFilter{})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(students, payments), nil
}

// Invoice derives the current term's invoice of a student from the ledger.
func (svc *Service) Invoice(ctx context.Context, studentID string) (Invoice, error) {
	s, err := svc.students.GetByID(ctx, studentID)
	if err != nil {
		return Invoice{}, err
	}
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{StudentIDs: []string{s.ID}})
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{
		InvoiceNo:   fmt.Sprintf("SCH/%d/%s", svc.opts.Year, s.AdmNo),
		StudentID:   s.ID,
		StudentName: s.Name,
		AdmNo:       s.AdmNo,
		Grade:       s.Grade,
		Term:        svc.opts.Term,
		Year:        svc.opts.Year,
		Items:       []FeeItem{},
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
		Balance:     Balance(entries),
	}
	for _, e := range entries {
		if e.Term != inv.Term || e.Year != inv.Year {
			continue
		}
		switch e.Kind {
		case KindCharge:
			inv.Items = append(inv.Items, FeeItem{Description: e.Description, Amount: e.Amount})
			inv.TotalAmount = inv.TotalAmount.Add(e.Amount)
		case KindPayment:
			inv.PaidAmount = inv.PaidAmount.Add(e.Amount)
		}
	}
	if len(inv.Items) == 0 && inv.Balance.IsPositive() {
		inv.Items = append(inv.Items, FeeItem{Description: descBroughtForward, Amount: inv.Balance})
		inv.TotalAmount = inv.Balance.Add(inv.PaidAmount)
	}

	switch {
	case !inv.Balance.IsPositive():
		inv.Status = StatusPaid
	case inv.PaidAmount.IsPositive():
		inv.Status = StatusPartial
	default:
		inv.Status = StatusUnpaid
	}
	return inv, nil
}

func (svc *Service) studentIndex(ctx context.Context) (map[string]student.Student, error) {
	students, err := svc.students.Query(ctx, student.QueryFilter{})
	if err != nil {
		return nil, err
	}
	idx := make(map[string]student.Student, len(students))
	for _, s := range students {
		idx[s.ID] = s
	}
	return idx, nil
}

func paymentView(e Entry, s student.Student) Payment {
	return Payment{
		ID:          e.ID,
		ReceiptNo:   e.ReceiptNo,
		StudentID:   e.StudentID,
		AdmNo:       s.AdmNo,
		StudentName: s.Name,
		Amount:      e.Amount,
		Method:      e.Method,
		Reference:   e.Reference,
		CreatedAt:   e.CreatedAt,
	}
}
