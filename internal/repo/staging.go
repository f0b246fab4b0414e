package repo

import (
	"fmt"

	"clumsy/internal/errors"
	"clumsy/internal/index"
	"clumsy/internal/object"

	"go.uber.org/zap"
)

// StageFile stores the worktree content at path as a blob, stages it as a
// regular file and saves the index.
func (r *Repository) StageFile(path string) (object.Hash, error) {
	return r.StageFileMode(path, object.ModeFile)
}

// StageFileMode is StageFile with an explicit mode.
func (r *Repository) StageFileMode(path string, mode object.Mode) (object.Hash, error) {
	if err := validateStage(path, mode); err != nil {
		return "", err
	}

	data, err := r.worktree.ReadBytes(path)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", path, errors.IO("read", path, err))
	}

	h, err := r.objects.Write(&object.Blob{Content: data})
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", path, err)
	}

	if err := r.stage(path, h, mode); err != nil {
		return "", err
	}
	return h, nil
}

// StageEntry stages an existing blob under path without reading the worktree.
func (r *Repository) StageEntry(path string, h object.Hash, mode object.Mode) error {
	if err := validateStage(path, mode); err != nil {
		return err
	}
	if _, err := r.objects.ReadBlob(h); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	return r.stage(path, h, mode)
}

func (r *Repository) stage(path string, h object.Hash, mode object.Mode) error {
	r.index.Stage(path, h, mode)
	if err := index.Save(r.store, r.index); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}

	r.logger.Debug("staged file",
		zap.String("path", path),
		zap.String("hash", h.String()),
		zap.Stringer("mode", mode))
	return nil
}

// HashFile computes the blob hash of the worktree file at path, storing the
// blob when write is set.
func (r *Repository) HashFile(path string, write bool) (object.Hash, error) {
	data, err := r.worktree.ReadBytes(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, errors.IO("read", path, err))
	}

	blob := &object.Blob{Content: data}
	if !write {
		return object.HashOf(blob), nil
	}
	h, err := r.objects.Write(blob)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return h, nil
}

func validateStage(path string, mode object.Mode) error {
	if err := object.ValidateName(path); err != nil {
		return errors.ValidationError(fmt.Sprintf("cannot stage %q: %v", path, err), nil)
	}
	if mode != object.ModeFile && mode != object.ModeExecutable {
		return errors.ValidationError(fmt.Sprintf("cannot stage %q: unsupported mode %s", path, mode), nil)
	}
	return nil
}
