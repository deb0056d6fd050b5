package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
)

var (
	// errors
	ErrUnknownTemplate = errors.New("template not found")
	ErrNoRecipients    = errors.New("no parent matches the selected audience")
)

type (
	Repository interface {
		SaveBroadcast(ctx context.Context, b Broadcast) error
		QueryBroadcasts(ctx context.Context) ([]Broadcast, error)
	}

	Options struct {
		SchoolName string
		FromEmail  mail.Address
		Term       string
	}

	Service struct {
		repo     Repository
		students *student.Service
		finance  *finance.Service
		sms      core.SMSService
		mailSvc  core.EmailService
		log      core.Logger
		opts     Options
	}
)

func NewService(
	repo Repository,
	students *student.Service,
	financeSvc *finance.Service,
	sms core.SMSService,
	mailSvc core.EmailService,
	log core.Logger,
	opts Options,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		finance:  financeSvc,
		sms:      sms,
		mailSvc:  mailSvc,
		log:      log,
		opts:     opts,
	}
}

// Broadcast renders the template (or free content) for every student of the target audience
// and delivers it to their parent through the selected channel.
func (svc *Service) Broadcast(ctx context.Context, nb NewBroadcast) (Broadcast, error) {
	content := nb.Content
	if content == "" {
		tmpl, ok := FindTemplate(nb.TemplateID)
		if !ok {
			return Broadcast{}, ErrUnknownTemplate
		}
		content = tmpl.Content
	}

	recipients, err := svc.audience(ctx, nb.Target, nb.Grade)
	if err != nil {
		return Broadcast{}, err
	}
	if len(recipients) == 0 {
		return Broadcast{}, core.NewValidationError(ErrNoRecipients, core.FieldError{Field: "target", Error: ErrNoRecipients.Error()})
	}

	term := nb.Term
	if term == "" {
		term = svc.opts.Term
	}
	vars := func(s student.Student) Vars {
		return Vars{
			SchoolName:  svc.opts.SchoolName,
			Date:        nb.Date,
			Reason:      nb.Reason,
			Term:        term,
			StudentName: s.Name,
			AdmNo:       s.AdmNo,
			Amount:      s.FeeBalance,
			Balance:     s.FeeBalance,
		}
	}

	var sent int
	switch nb.Channel {
	case ChannelEmail:
		sent, err = svc.sendEmails(recipients, content, vars)
	default:
		sent, err = svc.sendTexts(ctx, nb.Channel, recipients, content, vars)
	}
	if err != nil {
		return Broadcast{}, err
	}

	b := Broadcast{
		ID:         uuid.New().String(),
		TemplateID: nb.TemplateID,
		Target:     nb.Target,
		Grade:      nb.Grade,
		Channel:    nb.Channel,
		Recipients: len(recipients),
		Sent:       sent,
		CreatedAt:  time.Now().UTC(),
	}
	if err := svc.repo.SaveBroadcast(ctx, b); err != nil {
		return Broadcast{}, err
	}
	return b, nil
}

func (svc *Service) audience(ctx context.Context, target, grade string) ([]student.Student, error) {
	filter := student.QueryFilter{}
	if target == TargetGrade {
		filter.Grade = grade
	}
	students, err := svc.students.Query(ctx, filter, core.Ordering{Field: "adm_no", Ascending: true})
	if err != nil {
		return nil, err
	}
	if students, err = svc.finance.AttachBalances(ctx, students); err != nil {
		return nil, err
	}
	if target != TargetBalances {
		return students, nil
	}
	owing := students[:0]
	for _, s := range students {
		if s.FeeBalance.IsPositive() {
			owing = append(owing, s)
		}
	}
	return owing, nil
}

func (svc *Service) sendTexts(ctx context.Context, channel string, recipients []student.Student, content string, vars func(student.Student) Vars) (int, error) {
	msgs := make([]core.SMSMessage, 0, len(recipients))
	for _, s := range recipients {
		if !hasPhone(s) {
			continue
		}
		msgs = append(msgs, core.SMSMessage{To: s.ParentPhone, Channel: channel, Body: Render(content, vars(s))})
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return svc.sms.Send(ctx, msgs...)
}

func (svc *Service) sendEmails(recipients []student.Student, content string, vars func(student.Student) Vars) (int, error) {
	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, s := range recipients {
		if s.ParentEmail == "" || s.ParentEmail == student.Placeholder {
			continue
		}
		msg := &core.EmailMessage{
			To:      []mail.Address{{Name: s.ParentName, Address: s.ParentEmail}},
			Subject: fmt.Sprintf("%s: %s", svc.opts.SchoolName, s.Name),
			BodyStr: Render(content, vars(s)),
		}
		if err := msg.Render(svc.opts.SchoolName); err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}

// PaymentRecorded texts a PAYMENT_CONFIRMATION to the paying student's parent.
func (svc *Service) PaymentRecorded(ctx context.Context, s student.Student, r finance.Receipt) error {
	if !hasPhone(s) {
		return nil
	}
	tmpl, _ := FindTemplate(TypePaymentConfirmation)
	body := Render(tmpl.Content, Vars{
		SchoolName:  svc.opts.SchoolName,
		StudentName: s.Name,
		AdmNo:       s.AdmNo,
		Amount:      r.Payment.Amount,
		Balance:     r.Balance,
	})
	sent, err := svc.sms.Send(ctx, core.SMSMessage{To: s.ParentPhone, Channel: core.ChannelSMS, Body: body})
	if err != nil {
		return err
	}
	return svc.repo.SaveBroadcast(ctx, Broadcast{
		ID:         uuid.New().String(),
		TemplateID: tmpl.ID,
		Target:     r.Payment.ReceiptNo,
		Channel:    core.ChannelSMS,
		Recipients: 1,
		Sent:       sent,
		CreatedAt:  time.Now().UTC(),
	})
}

// MessagesSent counts the messages delivered so far.
func (svc *Service) MessagesSent(ctx context.Context) (int, error) {
	broadcasts, err := svc.repo.QueryBroadcasts(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, b := range broadcasts {
		n += b.Sent
	}
	return n, nil
}

func (svc *Service) Broadcasts(ctx context.Context) ([]Broadcast, error) {
	return svc.repo.QueryBroadcasts(ctx)
}

func hasPhone(s student.Student) bool {
	return s.ParentPhone != "" && s.ParentPhone != student.Placeholder
}

var _ finance.PaymentNotifier = (*Service)(nil)
