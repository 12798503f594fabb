package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/slack-archv/internal/models"
	"github.com/noah-isme/slack-archv/pkg/slack"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

// WorkspaceService keeps the archive's metadata and guards against syncing a
// different workspace into an existing archive.
type WorkspaceService struct {
	tx     txProvider
	info   informationRepository
	logger *zap.Logger
}

// NewWorkspaceService constructs the metadata reconciler.
func NewWorkspaceService(tx txProvider, info informationRepository, logger *zap.Logger) *WorkspaceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceService{tx: tx, info: info, logger: logger}
}

// Reconcile stores each identity field that is not stored yet. When the
// archive already belongs to another workspace it fails with
// ErrWorkspaceMismatch before writing anything, unless override is set.
func (s *WorkspaceService) Reconcile(ctx context.Context, identity slack.Record, override bool) (err error) {
	remote := identity.String(models.InfoKeyWorkspaceID)
	if remote == "" {
		return appErrors.Clone(appErrors.ErrMalformedRecord, "identity has no "+models.InfoKeyWorkspaceID)
	}

	stored, ok, err := s.info.Get(ctx, models.InfoKeyWorkspaceID)
	if err != nil {
		return err
	}
	if ok && stored != remote {
		if !override {
			s.logger.Error("archive belongs to a different workspace",
				zap.String("stored", stored), zap.String("remote", remote))
			return appErrors.Clone(appErrors.ErrWorkspaceMismatch,
				fmt.Sprintf("archive belongs to workspace %s, token belongs to %s", stored, remote))
		}
		s.logger.Warn("overriding archive workspace", zap.String("stored", stored), zap.String("remote", remote))
	}

	keys := make([]string, 0, len(identity))
	for k := range identity {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range keys {
		value, ferr := formatInfoValue(identity[key])
		if ferr != nil {
			err = fmt.Errorf("format %s: %w", key, ferr)
			return err
		}
		if key == models.InfoKeyWorkspaceID && override {
			err = s.info.Upsert(ctx, tx, key, value)
		} else {
			err = s.info.CreateIfAbsent(ctx, tx, key, value)
		}
		if err != nil {
			return err
		}
	}
	if err = s.info.CreateIfAbsent(ctx, tx, models.InfoKeyVersion, models.SchemaVersion); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}
	return nil
}

func formatInfoValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	default:
		out, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
