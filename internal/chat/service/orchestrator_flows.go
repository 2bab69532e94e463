package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

const (
	menuMessage = "Posso te ajudar com: consultar seu limite de crédito, solicitar aumento de limite, " +
		"verificar cotação de moedas ou atualizar seu perfil financeiro. O que você prefere?"
	increasePrompt = "Vou te ajudar a solicitar um aumento no seu limite de crédito. " +
		"Qual valor você gostaria de ter como novo limite?"
	interviewIntro = "Ótimo! Vou te ajudar a atualizar seu perfil financeiro. Com essas informações, " +
		"podemos avaliar melhores opções de crédito para você.\n\nPara começar, qual é a sua renda mensal?"
	exchangePrompt = "Qual moeda você quer converter? (USD, EUR, GBP, etc.)"
	anythingElse   = "Posso ajudar com mais alguma coisa?"
)

// ============================================================
// authenticated — roteamento por intenção
// ============================================================

func (o *Orchestrator) handleAuthenticated(ctx context.Context, sess *domain.Session, message string) reply {
	res := o.classifier.Classify(ctx, message)
	o.metrics.IncrIntent(string(res.Intent), string(res.Source))

	o.logger.Debug("intent classified",
		zap.String("session_id", sess.ID),
		zap.String("intent", string(res.Intent)),
		zap.String("source", string(res.Source)),
	)

	switch res.Intent {
	case domain.IntentCreditLimit:
		return o.limitReply(ctx, sess, "Seu limite atual", "Deseja solicitar aumento de limite?")

	case domain.IntentRequestIncrease:
		// "quero aumento para 20 mil" já traz o valor.
		if carriesAmount(message) {
			value, msg := o.parser.ParseLimitValue(message)
			if msg == "" {
				return o.evaluateIncrease(ctx, sess, value)
			}
			sess.State = domain.StateCreditIncrease
			return plain(msg)
		}
		sess.State = domain.StateCreditIncrease
		return plain(increasePrompt)

	case domain.IntentInterview:
		o.startInterview(sess)
		return plain(interviewIntro)

	case domain.IntentExchangeRate:
		codes := nlp.ExtractCurrencyCodes(message)
		switch {
		case len(codes) >= 2:
			return o.quote(ctx, sess, codes[0], codes[1])
		case len(codes) == 1:
			sess.Slots = domain.Slots{FromCurrency: codes[0]}
			sess.State = domain.StateExchangeTo
			return plain(toCurrencyPrompt(codes[0]))
		}
		sess.Slots = domain.Slots{}
		sess.State = domain.StateExchangeFrom
		return plain(exchangePrompt)
	}

	return plain(menuMessage)
}

func (o *Orchestrator) limitReply(ctx context.Context, sess *domain.Session, heading, trailer string) reply {
	limit, err := o.credit.GetLimit(ctx, sess.CPF)
	if err != nil {
		o.logger.Error("credit limit lookup failed", maskedCPF(sess), zap.Error(err))
		return plain("Não foi possível consultar seu limite agora. Tente novamente em instantes.")
	}

	sess.State = domain.StateAuthenticated
	return plain(fmt.Sprintf("%s: %s\nDisponível: %s\nScore: %d\n\n%s",
		heading,
		maindomain.FormatBRL(limit.CurrentLimit),
		maindomain.FormatBRL(limit.AvailableLimit),
		limit.Score,
		trailer,
	))
}

// ============================================================
// credit_increase_flow
// ============================================================

func (o *Orchestrator) handleIncreaseValue(ctx context.Context, sess *domain.Session, message string) reply {
	value, msg := o.parser.ParseLimitValue(message)
	if msg != "" {
		return plain(msg)
	}
	return o.evaluateIncrease(ctx, sess, value)
}

func (o *Orchestrator) evaluateIncrease(ctx context.Context, sess *domain.Session, value float64) reply {
	sess.State = domain.StateAuthenticated

	res, err := o.credit.RequestIncrease(ctx, sess.CPF, value)
	if err != nil {
		o.logger.Error("limit increase failed", maskedCPF(sess), zap.Error(err))
		return plain("Não foi possível processar sua solicitação agora. Tente novamente mais tarde.")
	}

	text := res.Message
	if res.OfferInterview {
		o.offerRedirect(sess, &domain.RedirectAction{
			TargetFlow:      domain.FlowInterview,
			Reason:          "credit_denied",
			SuggestedAction: "complete_interview",
		})
		if res.InterviewMessage != "" {
			text += "\n\n" + res.InterviewMessage
		}
	}
	return plain(text)
}

// ============================================================
// interview_* — um slot por estado
// ============================================================

func (o *Orchestrator) startInterview(sess *domain.Session) {
	sess.Slots = domain.Slots{}
	sess.State = domain.StateInterviewIncome
}

func (o *Orchestrator) handleInterview(ctx context.Context, sess *domain.Session, message string) reply {
	switch sess.State {
	case domain.StateInterviewIncome:
		v, msg := o.parser.ParseIncome(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.Income = &v
		sess.State = domain.StateInterviewEmployment
		return plain("Qual seu tipo de trabalho? CLT, autônomo, MEI, servidor público ou desempregado?")

	case domain.StateInterviewEmployment:
		e, msg := o.parser.ParseEmploymentType(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.Employment = &e
		sess.State = domain.StateInterviewExpenses
		return plain("Qual o total das suas despesas mensais?")

	case domain.StateInterviewExpenses:
		v, msg := o.parser.ParseExpenses(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.Expenses = &v
		sess.State = domain.StateInterviewDependents
		return plain("Quantos dependentes você tem?")

	case domain.StateInterviewDependents:
		n, msg := o.parser.ParseDependents(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.Dependents = &n
		sess.State = domain.StateInterviewDebts
		return plain("Você tem alguma dívida em aberto? (sim/não)")

	case domain.StateInterviewDebts:
		b, msg := o.parser.ParseHasDebts(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.HasDebts = &b
		return o.submitInterview(ctx, sess)
	}
	return o.resetUnexpected(sess)
}

func (o *Orchestrator) submitInterview(ctx context.Context, sess *domain.Session) reply {
	s := sess.Slots
	if s.Income == nil || s.Employment == nil || s.Expenses == nil || s.Dependents == nil || s.HasDebts == nil {
		o.logger.Error("interview submitted with missing slots", zap.String("session_id", sess.ID))
		o.startInterview(sess)
		return plain("Vamos recomeçar a entrevista. Qual sua renda mensal?")
	}

	data := &maindomain.InterviewData{
		MonthlyIncome:  *s.Income,
		EmploymentType: *s.Employment,
		Expenses:       *s.Expenses,
		Dependents:     *s.Dependents,
		HasDebts:       *s.HasDebts,
	}
	summary := interviewSummary(data)

	sess.Slots = domain.Slots{}
	sess.State = domain.StateAuthenticated

	res, err := o.interview.Submit(ctx, sess.CPF, data)
	if err != nil {
		o.logger.Error("interview submission failed", maskedCPF(sess), zap.Error(err))
		return plain("Não foi possível concluir a entrevista agora. Tente novamente mais tarde.")
	}

	o.offerRedirect(sess, &domain.RedirectAction{
		TargetFlow:      domain.FlowCredit,
		Reason:          "interview_completed",
		SuggestedAction: "check_new_limit",
	})

	return plain(fmt.Sprintf("Entrevista concluída!\n\n%s\n\n"+
		"Score anterior: %d\nNovo score: %d\n\n%s\n\n"+
		"Deseja consultar seu novo limite de crédito?",
		summary, res.PreviousScore, res.NewScore, res.Recommendation))
}

func interviewSummary(d *maindomain.InterviewData) string {
	debts := "não"
	if d.HasDebts {
		debts = "sim"
	}
	return fmt.Sprintf("Renda: %s | Emprego: %s | Despesas: %s | Dependentes: %d | Dívidas: %s",
		maindomain.FormatBRL(d.MonthlyIncome),
		d.EmploymentType.Label(),
		maindomain.FormatBRL(d.Expenses),
		d.Dependents,
		debts,
	)
}

// ============================================================
// exchange_from / exchange_to
// ============================================================

func (o *Orchestrator) handleExchange(ctx context.Context, sess *domain.Session, message string) reply {
	if sess.State == domain.StateExchangeFrom {
		// "dólar para euro" responde as duas perguntas de uma vez.
		if codes := nlp.ExtractCurrencyCodes(message); len(codes) >= 2 {
			return o.quote(ctx, sess, codes[0], codes[1])
		}
		code, msg := o.parser.ParseCurrency(message)
		if msg != "" {
			return plain(msg)
		}
		sess.Slots.FromCurrency = code
		sess.State = domain.StateExchangeTo
		return plain(toCurrencyPrompt(code))
	}

	code, msg := o.parser.ParseCurrency(message)
	if msg != "" {
		return plain(msg)
	}
	from := sess.Slots.FromCurrency
	if from == "" {
		from = "USD"
	}
	return o.quote(ctx, sess, from, code)
}

func (o *Orchestrator) quote(ctx context.Context, sess *domain.Session, from, to string) reply {
	q := o.exchange.GetRate(ctx, from, to)

	sess.Slots = domain.Slots{}
	sess.State = domain.StateAuthenticated

	if q.Rate == 0 {
		return plain(fmt.Sprintf("Cotação indisponível para %s/%s no momento.\n\n%s",
			strings.ToUpper(from), strings.ToUpper(to), anythingElse))
	}
	return plain(fmt.Sprintf("Cotação: 1 %s = %.4f %s\nAtualizado em: %s\n\n%s",
		strings.ToUpper(from), q.Rate, strings.ToUpper(to),
		q.Timestamp.Format("02/01/2006 15:04"),
		anythingElse,
	))
}

// carriesAmount exige dígito ou multiplicador: "quero um aumento" não é R$ 1.
func carriesAmount(message string) bool {
	return strings.ContainsAny(message, "0123456789") || nlp.HasAnyPhrase(message, amountWords)
}

var amountWords = []string{"mil", "milhao", "milhoes"}

func toCurrencyPrompt(from string) string {
	return fmt.Sprintf("Converter %s para qual moeda? (BRL para Real)", from)
}
