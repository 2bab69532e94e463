package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// ============================================================
// Autenticação — CPF e data de nascimento
// ============================================================

func (o *Orchestrator) handleCPF(ctx context.Context, sess *domain.Session, message string) reply {
	cpf, ok := nlp.ExtractCPF(message)
	if !ok {
		return humanized("CPF inválido. Informe os 11 dígitos do seu CPF.")
	}

	if _, err := o.clients.FindClientByCPF(ctx, cpf); err != nil {
		var nf *maindomain.ErrNotFound
		if errors.As(err, &nf) {
			return o.authFailure(sess, "cpf_not_found", "CPF não encontrado em nossa base. Verifique e tente novamente.")
		}
		o.logger.Error("client lookup failed", zap.String("cpf", maindomain.MaskCPF(cpf)), zap.Error(err))
		return plain(tryAgainMessage)
	}

	sess.CPF = cpf
	sess.State = domain.StateCollectingBirthdate
	return humanized("CPF validado! Agora, qual é a sua data de nascimento?")
}

func (o *Orchestrator) handleBirthdate(ctx context.Context, sess *domain.Session, message string) reply {
	day, month, year, ok := nlp.ParseDate(message)
	if !ok {
		return humanized("Formato inválido. Use DD/MM/AAAA.")
	}
	birthdate, msg := nlp.ValidateBirthdate(day, month, year, o.now())
	if msg != "" {
		return humanized(msg)
	}

	client, err := o.clients.FindClientByCPF(ctx, sess.CPF)
	if err != nil {
		var nf *maindomain.ErrNotFound
		if errors.As(err, &nf) {
			// Cliente sumiu da base entre as duas perguntas.
			sess.CPF = ""
			sess.State = domain.StateCollectingCPF
			return humanized("CPF não encontrado em nossa base. Verifique e tente novamente.")
		}
		o.logger.Error("client lookup failed", maskedCPF(sess), zap.Error(err))
		return plain(tryAgainMessage)
	}

	if !sameDay(client.Birthdate, birthdate) {
		return o.authFailure(sess, "birthdate_mismatch", "Data de nascimento incorreta. Tente novamente.")
	}

	token, err := o.tokens.IssueToken(sess.CPF)
	if err != nil {
		o.logger.Error("token issuance failed", maskedCPF(sess), zap.Error(err))
		return plain("Não foi possível concluir a autenticação agora. Tente novamente em instantes.")
	}

	sess.Birthdate = &birthdate
	sess.Token = token
	sess.ClientName = client.Name
	sess.AuthFailures = 0
	sess.State = domain.StateAuthenticated

	o.logger.Info("chat session authenticated", zap.String("session_id", sess.ID), maskedCPF(sess))

	r := humanized(fmt.Sprintf("Autenticado com sucesso! Olá, %s!\n\n"+
		"Como posso ajudar?\n"+
		"- Ver meu limite\n"+
		"- Solicitar aumento\n"+
		"- Cotação de moedas\n"+
		"- Atualizar perfil", client.Name))
	r.userName = client.Name
	return r
}

// authFailure conta uma falha de autenticação e encerra a sessão ao
// atingir o limite configurado.
func (o *Orchestrator) authFailure(sess *domain.Session, reason, message string) reply {
	sess.AuthFailures++
	o.metrics.IncrAuthFailure(reason)

	if o.maxAuthAttempts > 0 && sess.AuthFailures >= o.maxAuthAttempts {
		sess.State = domain.StateGoodbye
		o.metrics.IncrLockout()
		o.logger.Warn("chat session locked out",
			zap.String("session_id", sess.ID),
			zap.String("reason", reason),
			zap.Int("attempts", sess.AuthFailures),
		)
		return plain(lockoutMessage)
	}
	return humanized(message)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
