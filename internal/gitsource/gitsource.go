// Package gitsource reads scan inputs out of git history without touching a worktree.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// Source loads files from local repositories and clones remote ones.
type Source struct {
	logger *zap.Logger
	// maxBytes caps how much of a blob is read. Larger blobs are truncated to
	// maxBytes+1 so the scanner still reports them as too large.
	maxBytes int64
}

// New creates a Source.
func New(logger *zap.Logger, maxBytes int64) *Source {
	return &Source{logger: logger.Named("gitsource"), maxBytes: maxBytes}
}

// ReadRevision resolves rev (branch, tag, hash or an expression like HEAD~2) in the
// repository at repoPath and returns every file of that commit for which accept
// returns true. Paths are slash separated and relative to the repository root.
func (s *Source) ReadRevision(ctx context.Context, repoPath, rev string, accept func(string) bool) ([]scanner.File, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %q: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", hash, err)
	}

	var files []scanner.File
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode != filemode.Regular && f.Mode != filemode.Executable {
			return nil
		}
		if !accept(f.Name) {
			return nil
		}
		content, err := s.readBlob(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		files = append(files, scanner.File{Path: f.Name, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded revision",
		zap.String("repository", repoPath),
		zap.String("revision", rev),
		zap.String("commit", hash.String()),
		zap.Int("files", len(files)),
	)
	return files, nil
}

func (s *Source) readBlob(f *object.File) ([]byte, error) {
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, s.maxBytes+1))
}

// Clone shallow-clones url into dir. An empty ref clones the remote HEAD; a bare
// name is taken as a branch, anything starting with refs/ is used as is.
func (s *Source) Clone(ctx context.Context, url, ref, dir string) error {
	if url == "" {
		return errors.New("clone: repository URL is empty")
	}
	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if ref != "" {
		opts.ReferenceName = referenceName(ref)
	}

	s.logger.Info("Cloning repository", zap.String("url", url), zap.String("ref", ref))
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("cloning %s: %w", url, err)
	}
	return nil
}

func referenceName(ref string) plumbing.ReferenceName {
	if strings.HasPrefix(ref, "refs/") {
		return plumbing.ReferenceName(ref)
	}
	return plumbing.NewBranchReferenceName(ref)
}
