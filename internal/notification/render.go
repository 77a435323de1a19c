package notification

import (
	"fmt"
	"strings"
	"time"
)

const NoInsurer = "Particular"

// RenderContext carries the values substituted into templates.
// StartAt must already be in the clinic location.
type RenderContext struct {
	PatientFirstName      string
	PatientLastName       string
	ProfessionalFirstName string
	ProfessionalLastName  string
	Specialty             string
	StartAt               time.Time
	DurationMinutes       int
	InsurerName           string
}

type token struct {
	name    string
	resolve func(RenderContext) string
}

var tokens = []token{
	{"{paciente}", func(c RenderContext) string {
		return strings.TrimSpace(c.PatientFirstName + " " + c.PatientLastName)
	}},
	{"{profesional}", func(c RenderContext) string {
		return c.ProfessionalLastName + ", " + c.ProfessionalFirstName
	}},
	{"{especialidad}", func(c RenderContext) string { return c.Specialty }},
	{"{fecha}", func(c RenderContext) string { return c.StartAt.Format("02/01/2006") }},
	{"{hora}", func(c RenderContext) string { return c.StartAt.Format("15:04") }},
	{"{fechaHora}", func(c RenderContext) string { return c.StartAt.Format("02/01/2006 a las 15:04") }},
	{"{obraSocial}", func(c RenderContext) string {
		if c.InsurerName == "" {
			return NoInsurer
		}
		return c.InsurerName
	}},
	{"{duracion}", func(c RenderContext) string { return fmt.Sprintf("%d minutos", c.DurationMinutes) }},
}

// KnownTokens lists the placeholders Render substitutes, in resolution order.
func KnownTokens() []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.name
	}
	return out
}

type Rendered struct {
	Subject *string
	Body    string
}

// Render replaces every occurrence of each known token in the subject and
// body. Unknown placeholders are left as they are.
func Render(tpl Template, ctx RenderContext) Rendered {
	pairs := make([]string, 0, len(tokens)*2)
	for _, t := range tokens {
		pairs = append(pairs, t.name, t.resolve(ctx))
	}
	r := strings.NewReplacer(pairs...)

	out := Rendered{Body: r.Replace(tpl.Body)}
	if tpl.Subject != nil {
		subject := r.Replace(*tpl.Subject)
		out.Subject = &subject
	}
	return out
}
