package mail

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/lumiere-studio/backend/internal/model"
)

// copyText is the per-locale wording of the two templates.
type copyText struct {
	ConfirmSubject string
	Greeting       string
	Received       string
	Reply          string
	Recap          string
	Signature      string
	AdminSubject   string
	AdminIntro     string
	Labels         fieldLabels
}

type fieldLabels struct {
	Name, Email, Phone, Company, ProjectType, Budget, Timeline, Message string
}

var locales = map[string]copyText{
	"fr": {
		ConfirmSubject: "Nous avons bien reçu votre message",
		Greeting:       "Bonjour",
		Received:       "Merci de nous avoir contactés. Votre demande a bien été enregistrée.",
		Reply:          "Notre équipe vous répondra sous 24 à 48 heures ouvrées.",
		Recap:          "Récapitulatif de votre demande",
		Signature:      "L'équipe",
		AdminSubject:   "Nouvelle demande de contact",
		AdminIntro:     "Une nouvelle demande a été envoyée depuis le site.",
		Labels: fieldLabels{
			Name: "Nom", Email: "E-mail", Phone: "Téléphone", Company: "Entreprise",
			ProjectType: "Type de projet", Budget: "Budget", Timeline: "Délai", Message: "Message",
		},
	},
	"en": {
		ConfirmSubject: "We received your message",
		Greeting:       "Hello",
		Received:       "Thank you for getting in touch. Your request has been recorded.",
		Reply:          "Our team will get back to you within 24 to 48 business hours.",
		Recap:          "Summary of your request",
		Signature:      "The team at",
		AdminSubject:   "New contact request",
		AdminIntro:     "A new request was submitted from the website.",
		Labels: fieldLabels{
			Name: "Name", Email: "Email", Phone: "Phone", Company: "Company",
			ProjectType: "Project type", Budget: "Budget", Timeline: "Timeline", Message: "Message",
		},
	},
	"ru": {
		ConfirmSubject: "Мы получили ваше сообщение",
		Greeting:       "Здравствуйте",
		Received:       "Спасибо за обращение. Ваша заявка зарегистрирована.",
		Reply:          "Наша команда ответит вам в течение 24–48 рабочих часов.",
		Recap:          "Ваша заявка",
		Signature:      "Команда",
		AdminSubject:   "Новая заявка с сайта",
		AdminIntro:     "С сайта поступила новая заявка.",
		Labels: fieldLabels{
			Name: "Имя", Email: "Эл. почта", Phone: "Телефон", Company: "Компания",
			ProjectType: "Тип проекта", Budget: "Бюджет", Timeline: "Сроки", Message: "Сообщение",
		},
	},
}

// copyFor returns the wording for locale, falling back to fallback and then French.
func copyFor(locale, fallback string) copyText {
	if c, ok := locales[strings.ToLower(locale)]; ok {
		return c
	}
	if c, ok := locales[strings.ToLower(fallback)]; ok {
		return c
	}
	return locales["fr"]
}

type templateData struct {
	Copy     copyText
	Sub      *model.Submission
	Brand    string
	SiteURL  string
	AdminURL string
}

const recapHTML = `<table cellpadding="6" style="border-collapse:collapse">
<tr><td><strong>{{.Copy.Labels.Name}}</strong></td><td>{{.Sub.Name}}</td></tr>
<tr><td><strong>{{.Copy.Labels.Email}}</strong></td><td>{{.Sub.Email}}</td></tr>
{{- if .Sub.Phone}}
<tr><td><strong>{{.Copy.Labels.Phone}}</strong></td><td>{{.Sub.Phone}}</td></tr>{{end}}
{{- if .Sub.Company}}
<tr><td><strong>{{.Copy.Labels.Company}}</strong></td><td>{{.Sub.Company}}</td></tr>{{end}}
{{- if .Sub.ProjectType}}
<tr><td><strong>{{.Copy.Labels.ProjectType}}</strong></td><td>{{.Sub.ProjectType}}</td></tr>{{end}}
{{- if .Sub.Budget}}
<tr><td><strong>{{.Copy.Labels.Budget}}</strong></td><td>{{.Sub.Budget}}</td></tr>{{end}}
{{- if .Sub.Timeline}}
<tr><td><strong>{{.Copy.Labels.Timeline}}</strong></td><td>{{.Sub.Timeline}}</td></tr>{{end}}
</table>
<p><strong>{{.Copy.Labels.Message}}</strong></p>
<p style="white-space:pre-wrap">{{.Sub.Message}}</p>`

const recapText = `{{.Copy.Labels.Name}}: {{.Sub.Name}}
{{.Copy.Labels.Email}}: {{.Sub.Email}}
{{- if .Sub.Phone}}
{{.Copy.Labels.Phone}}: {{.Sub.Phone}}{{end}}
{{- if .Sub.Company}}
{{.Copy.Labels.Company}}: {{.Sub.Company}}{{end}}
{{- if .Sub.ProjectType}}
{{.Copy.Labels.ProjectType}}: {{.Sub.ProjectType}}{{end}}
{{- if .Sub.Budget}}
{{.Copy.Labels.Budget}}: {{.Sub.Budget}}{{end}}
{{- if .Sub.Timeline}}
{{.Copy.Labels.Timeline}}: {{.Sub.Timeline}}{{end}}

{{.Copy.Labels.Message}}:
{{.Sub.Message}}`

var (
	confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(
		`<p>{{.Copy.Greeting}} {{.Sub.Name}},</p>
<p>{{.Copy.Received}}</p>
<p>{{.Copy.Reply}}</p>
<h3>{{.Copy.Recap}}</h3>
` + recapHTML + `
<p>{{.Copy.Signature}} {{.Brand}}<br><a href="{{.SiteURL}}">{{.SiteURL}}</a></p>`))

	confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(
		`{{.Copy.Greeting}} {{.Sub.Name}},

{{.Copy.Received}}
{{.Copy.Reply}}

{{.Copy.Recap}}
` + recapText + `

{{.Copy.Signature}} {{.Brand}}
{{.SiteURL}}
`))

	adminHTML = htmltemplate.Must(htmltemplate.New("admin").Parse(
		`<p>{{.Copy.AdminIntro}}</p>
` + recapHTML + `
{{if .AdminURL}}<p><a href="{{.AdminURL}}">{{.AdminURL}}</a></p>{{end}}`))

	adminText = texttemplate.Must(texttemplate.New("admin").Parse(
		`{{.Copy.AdminIntro}}

` + recapText + `
{{if .AdminURL}}
{{.AdminURL}}{{end}}
`))
)

func render(html *htmltemplate.Template, text *texttemplate.Template, data templateData) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := text.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

// SendUserConfirmation emails the submitter an acknowledgement in their locale.
func (s *Sender) SendUserConfirmation(ctx context.Context, sub *model.Submission) model.EmailResult {
	data := s.templateData(sub, copyFor(sub.Locale, s.opts.DefaultLocale))
	html, text, err := render(confirmationHTML, confirmationText, data)
	if err != nil {
		return s.renderFailure(sub.Email, err)
	}
	return s.Send(ctx, Message{
		To:      sub.Email,
		Subject: data.Copy.ConfirmSubject,
		HTML:    html,
		Text:    text,
	})
}

// SendAdminNotification emails the agency inbox about a new submission, with
// Reply-To pointing at the submitter.
func (s *Sender) SendAdminNotification(ctx context.Context, sub *model.Submission) model.EmailResult {
	data := s.templateData(sub, copyFor(s.opts.DefaultLocale, s.opts.DefaultLocale))
	if s.opts.SiteURL != "" && sub.ID != "" {
		data.AdminURL = strings.TrimRight(s.opts.SiteURL, "/") + "/admin/submissions/" + sub.ID
	}
	html, text, err := render(adminHTML, adminText, data)
	if err != nil {
		return s.renderFailure(s.opts.AdminEmail, err)
	}
	return s.Send(ctx, Message{
		To:      s.opts.AdminEmail,
		ReplyTo: sub.Email,
		Subject: data.Copy.AdminSubject + ": " + sub.Name,
		HTML:    html,
		Text:    text,
	})
}

func (s *Sender) templateData(sub *model.Submission, c copyText) templateData {
	return templateData{Copy: c, Sub: sub, Brand: s.opts.FromName, SiteURL: s.opts.SiteURL}
}

func (s *Sender) renderFailure(to string, err error) model.EmailResult {
	s.logger.Error("email template failed", "to", to, "error", err)
	return model.EmailResult{
		Success: false,
		Error:   "render template: " + err.Error(),
		Details: model.EmailDetails{Method: s.transport.Name()},
	}
}
