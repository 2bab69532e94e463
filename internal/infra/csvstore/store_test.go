package csvstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/csvstore"
)

const (
	clientsCSV = "cpf,nome,data_nascimento,score,limite_atual\n" +
		"12345678901,João Silva,1990-05-15,650,5000.00\n" +
		"98765432100,Maria Santos,1985-08-22,780,8000.00\n"
	scoresCSV = "score_min,score_max,limite\n" +
		"0,499,1000.00\n" +
		"500,799,6000.00\n" +
		"800,1000,20000.00\n"
)

func newStore(t *testing.T) (*csvstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "clientes.csv"), clientsCSV)
	write(t, filepath.Join(dir, "score_limite.csv"), scoresCSV)

	s, err := csvstore.New(csvstore.Config{
		Dir:          dir,
		ClientsFile:  "clientes.csv",
		ScoresFile:   "score_limite.csv",
		RequestsFile: "solicitacoes_aumento_limite.csv",
		LockTimeout:  200 * time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_FindClientByCPF(t *testing.T) {
	s, _ := newStore(t)

	c, err := s.FindClientByCPF(context.Background(), "12345678901")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "João Silva" {
		t.Errorf("expected João Silva, got %s", c.Name)
	}
	if c.Score != 650 || c.CurrentLimit != 5000 {
		t.Errorf("unexpected score/limit: %d / %.2f", c.Score, c.CurrentLimit)
	}
	want := time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC)
	if !c.Birthdate.Equal(want) {
		t.Errorf("expected birthdate %v, got %v", want, c.Birthdate)
	}
}

func TestStore_FindClientByCPF_NotFound(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.FindClientByCPF(context.Background(), "99999999999")

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_UpdateClientScore(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	if err := s.UpdateClientScore(ctx, "98765432100", 910); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := s.FindClientByCPF(ctx, "98765432100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Score != 910 {
		t.Errorf("expected score 910, got %d", c.Score)
	}

	other, _ := s.FindClientByCPF(ctx, "12345678901")
	if other.Score != 650 {
		t.Errorf("other client must keep its score, got %d", other.Score)
	}
}

func TestStore_UpdateClientScore_UnknownCPF(t *testing.T) {
	s, _ := newStore(t)

	err := s.UpdateClientScore(context.Background(), "00000000000", 500)

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ScoreLimits(t *testing.T) {
	s, _ := newStore(t)

	bands, err := s.ScoreLimits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bands) != 3 {
		t.Fatalf("expected 3 bands, got %d", len(bands))
	}
	if bands[2].ScoreMin != 800 || bands[2].Limit != 20000 {
		t.Errorf("unexpected last band: %+v", bands[2])
	}
}

func TestStore_AppendLimitRequest(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	for _, status := range []domain.IncreaseStatus{domain.IncreaseApproved, domain.IncreaseDenied} {
		err := s.AppendLimitRequest(ctx, &domain.LimitRequest{
			CPF:            "12345678901",
			RequestedAt:    at,
			CurrentLimit:   5000,
			RequestedLimit: 7000,
			Status:         status,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reqs, err := s.LimitRequests(ctx, "12345678901")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[1].Status != domain.IncreaseDenied || reqs[1].RequestedLimit != 7000 {
		t.Errorf("unexpected request: %+v", reqs[1])
	}
	if !reqs[0].RequestedAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, reqs[0].RequestedAt)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "solicitacoes_aumento_limite.csv"))
	if got := string(raw[:len("cpf_cliente")]); got != "cpf_cliente" {
		t.Errorf("expected header on new file, got %q", got)
	}
}

func TestStore_LockTimeout(t *testing.T) {
	s, dir := newStore(t)

	held := flock.New(filepath.Join(dir, "clientes.csv.lock"))
	if err := held.Lock(); err != nil {
		t.Fatal(err)
	}
	defer held.Unlock()

	err := s.UpdateClientScore(context.Background(), "12345678901", 700)

	var lt *domain.ErrLockTimeout
	if !errors.As(err, &lt) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestNew_MissingDir(t *testing.T) {
	_, err := csvstore.New(csvstore.Config{Dir: filepath.Join(t.TempDir(), "nope")}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing data dir")
	}
}
