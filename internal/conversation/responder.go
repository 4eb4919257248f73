package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/autosales-assistant/internal/finance"
	"github.com/wolfman30/autosales-assistant/internal/session"
)

// Reply is what the assistant sends back for one turn.
type Reply struct {
	Message       string        `json:"message"`
	FinancingPlan *finance.Plan `json:"financing_plan,omitempty"`
}

// Responder turns a processed turn into a user-facing reply.
type Responder interface {
	Respond(ctx context.Context, turn *TurnResult) (Reply, error)
}

var fieldPrompts = map[string]string{
	FieldBrand:          "la marca que te interesa",
	FieldModel:          "el modelo que buscas",
	FieldTargetDistance: "el kilometraje máximo que aceptarías",
	FieldBudget:         "tu presupuesto aproximado",
	FieldMinimumYear:    "el año mínimo del auto",
	FieldFinancingData:  "el precio del auto y el plazo en años si quieres financiarlo",
	FieldDownPayment:    "el enganche aproximado",
	FieldTermYears:      "el plazo en años",
}

// TemplateResponder answers with fixed Spanish templates and computes a
// financing plan whenever the turn carries a complete draft.
type TemplateResponder struct {
	rate float64
}

// NewTemplateResponder uses rate for financing plans; a negative rate falls
// back to finance.DefaultRate.
func NewTemplateResponder(rate float64) *TemplateResponder {
	if rate < 0 {
		rate = finance.DefaultRate
	}
	return &TemplateResponder{rate: rate}
}

// Respond implements Responder.
func (r *TemplateResponder) Respond(_ context.Context, turn *TurnResult) (Reply, error) {
	if turn == nil {
		return Reply{}, errors.New("conversation: turn result is nil")
	}

	if turn.Reprompt && turn.Question != nil {
		return Reply{Message: "No reconocí esa opción. Elige una de estas: " + joinOptions(turn.Question.Options) + "."}, nil
	}

	var reply Reply
	if draft := turn.Request.Financing; draft != nil && draft.CarPrice > 0 && draft.Years > 0 {
		plan, err := finance.CalculateInput(*draft, r.rate)
		switch {
		case err == nil:
			reply.FinancingPlan = &plan
			reply.Message = fmt.Sprintf(
				"Con un precio de $%s, enganche de $%s a %d meses, la mensualidad estimada es de $%s (total pagado $%s).",
				formatMoney(draft.CarPrice), formatMoney(draft.DownPayment), plan.Months,
				formatMoney(plan.MonthlyPayment), formatMoney(plan.TotalPaid),
			)
		case errors.Is(err, finance.ErrInvalidTerm):
			reply.Message = fmt.Sprintf("El plazo de financiamiento debe estar entre %d y %d años.", finance.MinYears, finance.MaxYears)
		case errors.Is(err, finance.ErrValidation):
			reply.Message = "Revisa los montos: el precio debe ser mayor a cero y mayor que el enganche."
		default:
			return Reply{}, err
		}
		// An opened question is pending in the session, so its options must be shown.
		if turn.Question != nil {
			reply.Message += " " + openQuestionMessage(turn.Question)
		}
		return reply, nil
	}

	switch {
	case turn.Question != nil:
		reply.Message = openQuestionMessage(turn.Question)
	case turn.Intent == IntentGreeting:
		reply.Message = "¡Hola! Soy tu asesor de autos. ¿Qué tipo de auto estás buscando?"
	case turn.Intent == IntentOffTopic:
		reply.Message = "Solo puedo ayudarte con la compra y el financiamiento de autos."
	case turn.ExpectedSlot != "":
		reply.Message = "Para ayudarte mejor, ¿me compartes " + fieldPrompt(turn.ExpectedSlot) + "?"
	case len(turn.MissingFields) == 0:
		reply.Message = "Tengo todo lo que necesito. " + describePreferences(turn)
	default:
		reply.Message = "¿En qué más te puedo ayudar? " + describePreferences(turn)
	}
	return reply, nil
}

func openQuestionMessage(q *session.Question) string {
	return questionPrompt(q.Slot, q.Metadata["brand"]) + " Opciones: " + joinOptions(q.Options) + "."
}

func questionPrompt(slot, brand string) string {
	if slot == FieldModel && brand != "" {
		return "¿Qué modelo de " + brand + " te interesa?"
	}
	if slot == FieldBrand {
		return "¿Qué marca te interesa?"
	}
	return "¿Me compartes " + fieldPrompt(slot) + "?"
}

func fieldPrompt(slot string) string {
	if prompt, ok := fieldPrompts[slot]; ok {
		return prompt
	}
	return "más detalles de lo que buscas"
}

func describePreferences(turn *TurnResult) string {
	p := turn.Request.Preferences
	parts := make([]string, 0, 5)
	if p.Make != "" || p.Model != "" {
		parts = append(parts, strings.TrimSpace(p.Make+" "+p.Model))
	}
	if p.MinYear > 0 {
		parts = append(parts, "desde "+strconv.Itoa(p.MinYear))
	}
	if p.MaxKM > 0 {
		parts = append(parts, "hasta "+formatMoney(float64(p.MaxKM))+" km")
	}
	if p.MaxPrice > 0 {
		parts = append(parts, "hasta $"+formatMoney(p.MaxPrice))
	}
	if len(parts) == 0 {
		return "Cuéntame qué auto buscas."
	}
	return "Buscas: " + strings.Join(parts, ", ") + "."
}

func joinOptions(options []string) string {
	return strings.Join(options, ", ")
}

// formatMoney renders 12345.6 as "12,345.60" and whole amounts without decimals.
func formatMoney(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "00" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
