// Package csvstore persists clients, the score table and limit-increase
// requests in flat CSV files. Every access takes a lock file (<file>.lock)
// so several processes can share the same data directory.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

var tracer = otel.Tracer("infra/csvstore")

const (
	birthdateLayout = "2006-01-02"
	requestLayout   = time.RFC3339
	lockRetryDelay  = 50 * time.Millisecond
)

var (
	clientHeader  = []string{"cpf", "nome", "data_nascimento", "score", "limite_atual"}
	scoreHeader   = []string{"score_min", "score_max", "limite"}
	requestHeader = []string{"cpf_cliente", "data_hora_solicitacao", "limite_atual", "novo_limite_solicitado", "status_pedido"}
)

// Config locates the CSV files.
type Config struct {
	Dir          string
	ClientsFile  string
	ScoresFile   string
	RequestsFile string
	LockTimeout  time.Duration
}

// Store implements port.ClientRepository over CSV files.
type Store struct {
	clientsPath  string
	scoresPath   string
	requestsPath string
	lockTimeout  time.Duration
	logger       *zap.Logger
}

// New creates a Store. The data directory must exist.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("data dir %s: %w", cfg.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", cfg.Dir)
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 10 * time.Second
	}
	return &Store{
		clientsPath:  filepath.Join(cfg.Dir, cfg.ClientsFile),
		scoresPath:   filepath.Join(cfg.Dir, cfg.ScoresFile),
		requestsPath: filepath.Join(cfg.Dir, cfg.RequestsFile),
		lockTimeout:  cfg.LockTimeout,
		logger:       logger,
	}, nil
}

// ============================================================
// Clients
// ============================================================

// FindClientByCPF returns the client or *domain.ErrNotFound.
func (s *Store) FindClientByCPF(ctx context.Context, cpf string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Store.FindClientByCPF")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", domain.MaskCPF(cpf)))

	var found *domain.Client
	err := s.withLock(ctx, s.clientsPath, false, func() error {
		rows, err := readRows(s.clientsPath, clientHeader)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row[0] != cpf {
				continue
			}
			c, err := parseClient(row)
			if err != nil {
				return err
			}
			found = c
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &domain.ErrNotFound{Resource: "client", ID: domain.MaskCPF(cpf)}
	}
	return found, nil
}

// UpdateClientScore rewrites the client's score in place.
func (s *Store) UpdateClientScore(ctx context.Context, cpf string, score int) error {
	ctx, span := tracer.Start(ctx, "Store.UpdateClientScore")
	defer span.End()

	return s.withLock(ctx, s.clientsPath, true, func() error {
		rows, err := readRows(s.clientsPath, clientHeader)
		if err != nil {
			return err
		}
		updated := false
		for _, row := range rows {
			if row[0] == cpf {
				row[3] = strconv.Itoa(score)
				updated = true
			}
		}
		if !updated {
			return &domain.ErrNotFound{Resource: "client", ID: domain.MaskCPF(cpf)}
		}
		if err := writeRows(s.clientsPath, clientHeader, rows); err != nil {
			return err
		}
		s.logger.Info("client score updated",
			zap.String("cpf", domain.MaskCPF(cpf)),
			zap.Int("score", score),
		)
		return nil
	})
}

func parseClient(row []string) (*domain.Client, error) {
	birth, err := time.Parse(birthdateLayout, strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("parse data_nascimento %q: %w", row[2], err)
	}
	score, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, fmt.Errorf("parse score %q: %w", row[3], err)
	}
	limit, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return nil, fmt.Errorf("parse limite_atual %q: %w", row[4], err)
	}
	return &domain.Client{
		CPF:          row[0],
		Name:         row[1],
		Birthdate:    birth,
		Score:        score,
		CurrentLimit: limit,
	}, nil
}

// ============================================================
// Score table
// ============================================================

// ScoreLimits returns every score band in file order.
func (s *Store) ScoreLimits(ctx context.Context) ([]domain.ScoreLimit, error) {
	ctx, span := tracer.Start(ctx, "Store.ScoreLimits")
	defer span.End()

	var out []domain.ScoreLimit
	err := s.withLock(ctx, s.scoresPath, false, func() error {
		rows, err := readRows(s.scoresPath, scoreHeader)
		if err != nil {
			return err
		}
		out = make([]domain.ScoreLimit, 0, len(rows))
		for _, row := range rows {
			lo, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
			hi, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
			limit, err3 := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			if err := errors.Join(err1, err2, err3); err != nil {
				return fmt.Errorf("parse score row %v: %w", row, err)
			}
			out = append(out, domain.ScoreLimit{ScoreMin: lo, ScoreMax: hi, Limit: limit})
		}
		return nil
	})
	return out, err
}

// ============================================================
// Limit-increase requests
// ============================================================

// AppendLimitRequest appends one request, writing the header on a new file.
func (s *Store) AppendLimitRequest(ctx context.Context, req *domain.LimitRequest) error {
	ctx, span := tracer.Start(ctx, "Store.AppendLimitRequest")
	defer span.End()

	return s.withLock(ctx, s.requestsPath, true, func() error {
		f, err := os.OpenFile(s.requestsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.requestsPath, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}

		w := csv.NewWriter(f)
		if info.Size() == 0 {
			if err := w.Write(requestHeader); err != nil {
				return err
			}
		}
		if err := w.Write([]string{
			req.CPF,
			req.RequestedAt.Format(requestLayout),
			formatAmount(req.CurrentLimit),
			formatAmount(req.RequestedLimit),
			string(req.Status),
		}); err != nil {
			return err
		}
		w.Flush()
		return w.Error()
	})
}

// LimitRequests returns every recorded request for the CPF.
func (s *Store) LimitRequests(ctx context.Context, cpf string) ([]domain.LimitRequest, error) {
	var out []domain.LimitRequest
	err := s.withLock(ctx, s.requestsPath, false, func() error {
		rows, err := readRows(s.requestsPath, requestHeader)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row[0] != cpf {
				continue
			}
			at, _ := time.Parse(requestLayout, row[1])
			cur, _ := strconv.ParseFloat(row[2], 64)
			req, _ := strconv.ParseFloat(row[3], 64)
			out = append(out, domain.LimitRequest{
				CPF:            row[0],
				RequestedAt:    at,
				CurrentLimit:   cur,
				RequestedLimit: req,
				Status:         domain.IncreaseStatus(row[4]),
			})
		}
		return nil
	})
	return out, err
}

// ============================================================
// File helpers
// ============================================================

// withLock runs fn holding the lock file for path: shared for reads,
// exclusive for writes. Gives up with *domain.ErrLockTimeout.
func (s *Store) withLock(ctx context.Context, path string, exclusive bool, fn func() error) error {
	lock := flock.New(path + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lock.TryLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = lock.TryRLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil || !locked {
		s.logger.Warn("csv lock not acquired", zap.String("path", path), zap.Error(err))
		return &domain.ErrLockTimeout{Path: filepath.Base(path)}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("csv unlock failed", zap.String("path", path), zap.Error(err))
		}
	}()

	return fn()
}

// readRows reads a CSV file, checks its header and returns the data rows.
func readRows(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	r.TrimLeadingSpace = true

	got, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		if strings.TrimSpace(strings.TrimPrefix(got[i], "\ufeff")) != header[i] {
			return nil, fmt.Errorf("unexpected header in %s: %v", path, got)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// writeRows replaces the file atomically (temp file + rename).
func writeRows(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
