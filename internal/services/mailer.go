package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/pkg/logger"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer delivers through the configured SMTP relay.
type SMTPMailer struct {
	cfg *config.SMTPConfig
}

// NewMailer returns nil when no SMTP host is configured.
func NewMailer(cfg *config.SMTPConfig) Mailer {
	if cfg == nil || cfg.Host == "" {
		return nil
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.cfg.From, "testdesk"))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return d.DialAndSend(msg)
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<html><body style="font-family: Arial, sans-serif;">
<p>Hello {{.Name}},</p>
<p>{{.Inviter}} added you to the project <strong>{{.DisplayID}} {{.Title}}</strong>.</p>
<p>The project appears in your workspace once you accept the invitation.</p>
{{if .Link}}<p><a href="{{.Link}}">Accept invitation</a></p>{{end}}
</body></html>`))

// InvitationService turns queued InvitationTasks into e-mails.
type InvitationService struct {
	db        *gorm.DB
	mailer    Mailer
	publicURL string
}

func NewInvitationService(db *gorm.DB, mailer Mailer, publicURL string) *InvitationService {
	return &InvitationService{db: db, mailer: mailer, publicURL: strings.TrimRight(publicURL, "/")}
}

// Deliver is the TaskProcessor for invitations. Memberships that were
// removed or already accepted in the meantime are skipped.
func (s *InvitationService) Deliver(ctx context.Context, task *InvitationTask) error {
	db := s.db.WithContext(ctx)

	var member models.ProjectMember
	if err := db.Preload("User").First(&member, task.MemberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !member.Pending() || member.User == nil {
		return nil
	}

	var project models.Project
	if err := db.First(&project, member.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := decorate(db, models.EntityProject, &project); err != nil {
		return err
	}

	inviter := "An administrator"
	var by models.User
	if err := db.First(&by, task.InvitedBy).Error; err == nil {
		inviter = by.Name
		if inviter == "" {
			inviter = by.Username
		}
	}

	if s.mailer == nil || member.User.Email == "" {
		logger.Info().Uint("member_id", member.ID).Msg("invitation not mailed: no mailer or address")
		return nil
	}

	body, err := s.render(member.User, &project, inviter)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("[testdesk] You were added to %s", project.Title)
	if err := s.mailer.Send(member.User.Email, subject, body); err != nil {
		return fmt.Errorf("send invitation to %s: %w", member.User.Email, err)
	}

	LogInfo("member", "invitation_sent", fmt.Sprintf("invitation for project %s sent to %s", project.DisplayID, member.User.Username), &task.InvitedBy, "", "", task)
	return nil
}

func (s *InvitationService) render(user *models.User, project *models.Project, inviter string) (string, error) {
	name := user.Name
	if name == "" {
		name = user.Username
	}
	var link string
	if s.publicURL != "" {
		link = fmt.Sprintf("%s/projects/%d/membership/verify", s.publicURL, project.ID)
	}

	var buf bytes.Buffer
	err := invitationTemplate.Execute(&buf, map[string]string{
		"Name":      name,
		"Inviter":   inviter,
		"DisplayID": project.DisplayID,
		"Title":     project.Title,
		"Link":      link,
	})
	return buf.String(), err
}
