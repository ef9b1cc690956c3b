package utils

import (
	"context"
	"fmt"
	"html"

	"lms/logger"
	"lms/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailContent struct {
	Subject string
	HTML    string
}

// EmailChannel mails learners about their enrollments and graded attempts through SendGrid.
type EmailChannel struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	directory Directory
	log       *logger.Logger
}

func NewEmailChannel(apiKey, fromEmail, fromName string, directory Directory, log *logger.Logger) (*EmailChannel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if fromEmail == "" {
		return nil, fmt.Errorf("missing EMAIL_SENDER")
	}
	return &EmailChannel{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		directory: directory,
		log:       log.With("channel", "email"),
	}, nil
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Deliver(ctx context.Context, ev Event) error {
	to, content, err := e.compose(ctx, ev)
	if err != nil {
		return err
	}
	if to == nil {
		return nil
	}

	from := mail.NewEmail(e.fromName, e.fromEmail)
	recipient := mail.NewEmail(to.Name, to.Email)
	msg := mail.NewSingleEmail(from, content.Subject, recipient, "", content.HTML)
	resp, err := e.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	e.log.Debug("email sent", "event", ev.Name, "to", to.Email)
	return nil
}

// compose returns the recipient and content for ev; a nil recipient means nothing to send.
func (e *EmailChannel) compose(ctx context.Context, ev Event) (*models.User, EmailContent, error) {
	switch data := ev.Data.(type) {
	case models.Enrollment:
		user, err := e.directory.User(ctx, data.LearnerID)
		if err != nil {
			return nil, EmailContent{}, err
		}
		course, err := e.directory.Course(ctx, data.CourseID)
		if err != nil {
			return nil, EmailContent{}, err
		}
		if ev.Name == EventEnrollmentCompleted {
			return user, CourseCompletedEmail(user.Name, course.Title), nil
		}
		return user, EnrollmentEmail(user.Name, course.Title), nil
	case models.Attempt:
		user, err := e.directory.User(ctx, data.StudentID)
		if err != nil {
			return nil, EmailContent{}, err
		}
		quiz, err := e.directory.Quiz(ctx, data.QuizID)
		if err != nil {
			return nil, EmailContent{}, err
		}
		return user, AttemptGradedEmail(user.Name, quiz.Title, data), nil
	}
	return nil, EmailContent{}, nil
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1B3A5C; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B3A5C; line-height: 1.6; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3C8DBC; margin: 20px 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>LEARNING PORTAL</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">You receive this email because you are enrolled in a course.</div>
		</div>
	</body>
	</html>
	`, html.EscapeString(title), bodyContent)
}

func EnrollmentEmail(name, courseTitle string) EmailContent {
	body := fmt.Sprintf(`<p>Hello %s,</p>
		<p>You are now enrolled in <b>%s</b>. Your progress is saved as you complete lessons.</p>`,
		html.EscapeString(name), html.EscapeString(courseTitle))
	return EmailContent{Subject: "Enrollment confirmed: " + courseTitle, HTML: getEmailTemplate("Welcome aboard", body)}
}

func CourseCompletedEmail(name, courseTitle string) EmailContent {
	body := fmt.Sprintf(`<p>Congratulations %s,</p>
		<p>You completed every lesson of <b>%s</b>.</p>`,
		html.EscapeString(name), html.EscapeString(courseTitle))
	return EmailContent{Subject: "Course completed: " + courseTitle, HTML: getEmailTemplate("Course completed", body)}
}

func AttemptGradedEmail(name, quizTitle string, a models.Attempt) EmailContent {
	result := "not passed"
	if a.IsPassed != nil && *a.IsPassed {
		result = "passed"
	}
	score := 0.0
	if a.Score != nil {
		score = *a.Score
	}
	body := fmt.Sprintf(`<p>Hello %s,</p>
		<p>Your attempt #%d of <b>%s</b> has been graded.</p>
		<div class="info-box">Score: <b>%g</b><br>Result: <b>%s</b></div>`,
		html.EscapeString(name), a.AttemptNumber, html.EscapeString(quizTitle), score, result)
	return EmailContent{Subject: "Quiz graded: " + quizTitle, HTML: getEmailTemplate("Your quiz result", body)}
}
