package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/intent"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
)

// ============================================================
// Redirect — ofertas de pular para outro fluxo
// ============================================================
//
// Uma oferta vale por uma única mensagem: aceitar leva ao fluxo alvo,
// recusar volta ao menu, qualquer outra coisa descarta a oferta e segue
// o roteamento normal. Recusa com outra intenção ("não, quero ver meu
// limite") conta como outra coisa.

var (
	acceptWords = []string{"sim", "yes", "ok", "vamos", "quero", "pode", "claro", "aceito"}
	rejectWords = []string{"nao", "agora nao", "depois", "talvez"}
)

const rejectMessage = "Tudo bem! Posso ajudar com mais alguma coisa? Limite, aumento, câmbio ou perfil."

func (o *Orchestrator) offerRedirect(sess *domain.Session, r *domain.RedirectAction) {
	sess.PendingRedirect = r
	o.metrics.IncrRedirect("offered")
	o.logger.Debug("redirect offered",
		zap.String("session_id", sess.ID),
		zap.String("target", string(r.TargetFlow)),
		zap.String("reason", r.Reason),
	)
}

// resolveRedirect consome a oferta pendente. handled=false significa que a
// mensagem não era resposta à oferta e deve seguir o roteamento normal.
func (o *Orchestrator) resolveRedirect(ctx context.Context, sess *domain.Session, message string) (reply, bool) {
	redirect := sess.PendingRedirect
	sess.PendingRedirect = nil

	switch {
	case acceptsRedirect(message, redirect):
		o.metrics.IncrRedirect("accepted")
		return o.acceptRedirect(ctx, sess, redirect), true
	case rejectsRedirect(message):
		o.metrics.IncrRedirect("rejected")
		sess.State = domain.StateAuthenticated
		return humanized(rejectMessage), true
	}

	o.metrics.IncrRedirect("superseded")
	return reply{}, false
}

// acceptsRedirect exige palavra de aceite, nenhuma negação e nenhuma
// intenção concorrente ("quero ver o dólar" não aceita a entrevista).
func acceptsRedirect(message string, r *domain.RedirectAction) bool {
	if !nlp.HasAnyPhrase(message, acceptWords) || nlp.HasAnyPhrase(message, rejectWords) {
		return false
	}

	switch intent.ClassifyRules(message) {
	case domain.IntentOther:
		return true
	case domain.IntentInterview:
		return r.TargetFlow == domain.FlowInterview
	case domain.IntentCreditLimit:
		return r.TargetFlow == domain.FlowCredit
	}
	return false
}

func rejectsRedirect(message string) bool {
	return nlp.HasAnyPhrase(message, rejectWords) && intent.ClassifyRules(message) == domain.IntentOther
}

func (o *Orchestrator) acceptRedirect(ctx context.Context, sess *domain.Session, r *domain.RedirectAction) reply {
	switch r.TargetFlow {
	case domain.FlowInterview:
		o.startInterview(sess)
		return humanized("Ótimo! Vamos atualizar seu perfil financeiro. Qual é sua renda mensal?")
	case domain.FlowCredit:
		out := o.limitReply(ctx, sess, "Seu novo limite", anythingElse)
		out.humanize = true
		return out
	}
	sess.State = domain.StateAuthenticated
	return humanized("Como posso ajudar?")
}
