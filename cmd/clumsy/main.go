package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"clumsy/internal/api"
	"clumsy/internal/config"
	"clumsy/internal/logging"
	"clumsy/internal/object"
	"clumsy/internal/repo"
	"clumsy/internal/watch"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger, _  = zap.NewDevelopment()
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "clumsy",
	Short: "Clumsy is a minimal content-addressed version control engine",
	Long: `Clumsy stores file snapshots as hashed blob, tree and commit objects,
keeps a staging index and a single current branch ref, and can walk
history and restore files from any commit.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

// session is an opened repository together with the backends it runs on.
type session struct {
	*repo.Repository
	cfg      *config.Config
	backends *config.Backends
}

func (s *session) Close() error {
	return s.backends.Close()
}

func openRepo() (*session, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.Storage.Backend != config.BackendMemory {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		root, err := config.FindRoot(cwd, filepath.Base(cfg.Storage.Path))
		if err != nil {
			root = cwd
		}
		cfg.Storage.Anchor(root)
	}

	backends, err := cfg.Storage.Open()
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	r, err := repo.New(repo.Options{
		Store:     backends.Store,
		Worktree:  backends.Worktree,
		Identity:  identity(cfg),
		Branch:    cfg.Branch,
		CacheSize: cfg.Storage.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &session{Repository: r, cfg: cfg, backends: backends}, nil
}

// identity prefers CLUMSY_AUTHOR_NAME / CLUMSY_AUTHOR_EMAIL over the config.
func identity(cfg *config.Config) object.Signature {
	sig := object.Signature{Name: cfg.Author.Name, Email: cfg.Author.Email}
	if v := os.Getenv("CLUMSY_AUTHOR_NAME"); v != "" {
		sig.Name = v
	}
	if v := os.Getenv("CLUMSY_AUTHOR_EMAIL"); v != "" {
		sig.Email = v
	}
	return sig
}

// withRepo opens the repository, runs fn and closes it.
func withRepo(fn func(s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openRepo()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, args)
	}
}

// resolveCommit accepts a full hash, or HEAD / empty for the current commit.
func resolveCommit(s *session, arg string) (object.Hash, error) {
	if arg == "" || arg == "HEAD" {
		ref, h, err := s.Head()
		if err != nil {
			return "", err
		}
		if h == "" {
			return "", fmt.Errorf("%s has no commits yet", ref)
		}
		return h, nil
	}
	return object.ParseHash(arg)
}

func init() {
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a new repository",
		RunE: withRepo(func(s *session, args []string) error {
			if err := s.Init(); err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}
			fmt.Printf("Initialized empty repository (%s backend, branch %s)\n",
				s.cfg.Storage.Backend, s.cfg.Branch)
			return nil
		}),
	}

	var writeCmd = &cobra.Command{
		Use:   "write <path> [content]",
		Short: "Write a worktree file from an argument or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withRepo(func(s *session, args []string) error {
			var content []byte
			if len(args) == 2 {
				content = []byte(args[1])
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				content = data
			}
			return s.WriteFile(args[0], content)
		}),
	}

	var catCmd = &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a worktree file",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(func(s *session, args []string) error {
			data, err := s.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}),
	}

	var addCmd = &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage worktree files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executable, _ := cmd.Flags().GetBool("executable")
			mode := object.ModeFile
			if executable {
				mode = object.ModeExecutable
			}

			s, err := openRepo()
			if err != nil {
				return err
			}
			defer s.Close()

			green := color.New(color.FgGreen).SprintFunc()
			for _, path := range args {
				h, err := s.StageFileMode(path, mode)
				if err != nil {
					return fmt.Errorf("staging %s: %w", path, err)
				}
				fmt.Printf("%s %s %s\n", green("staged"), h.Short(), path)
			}
			return nil
		},
	}
	addCmd.Flags().BoolP("executable", "x", false, "Stage with mode 100755")

	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Record the index as a new commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")

			s, err := openRepo()
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := s.Commit(message)
			if err != nil {
				return fmt.Errorf("committing: %w", err)
			}
			ref, _, _ := s.Head()
			fmt.Printf("[%s %s] %s\n", strings.TrimPrefix(ref, "refs/heads/"), h.Short(), firstLine(message))
			return nil
		},
	}
	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "Show commit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			oneline, _ := cmd.Flags().GetBool("oneline")

			s, err := openRepo()
			if err != nil {
				return err
			}
			defer s.Close()

			yellow := color.New(color.FgYellow).SprintFunc()
			n := 0
			for e, err := range s.History() {
				if err != nil {
					return err
				}
				if limit > 0 && n == limit {
					break
				}
				n++

				if oneline {
					fmt.Printf("%s %s\n", yellow(e.Hash.Short()), e.Commit.Summary())
					continue
				}
				fmt.Printf("%s %s\n", yellow("commit"), yellow(e.Hash))
				fmt.Printf("Author: %s\n", e.Commit.Author)
				fmt.Printf("Date:   %s (%s)\n",
					e.Commit.Author.When.Format(time.RFC1123Z),
					humanize.Time(e.Commit.Author.When))
				fmt.Printf("\n    %s\n\n", strings.ReplaceAll(e.Commit.Message, "\n", "\n    "))
			}
			if n == 0 {
				fmt.Println("No commits yet")
			}
			return nil
		},
	}
	logCmd.Flags().IntP("limit", "n", 0, "Show at most n commits")
	logCmd.Flags().Bool("oneline", false, "One commit per line")

	var restoreCmd = &cobra.Command{
		Use:   "restore <commit> <path>",
		Short: "Restore a file from a commit into the worktree",
		Args:  cobra.ExactArgs(2),
		RunE: withRepo(func(s *session, args []string) error {
			h, err := resolveCommit(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Restore(h, args[1]); err != nil {
				return err
			}
			fmt.Printf("Restored %s from %s\n", args[1], h.Short())
			return nil
		}),
	}

	var catFileCmd = &cobra.Command{
		Use:   "cat-file <hash>",
		Short: "Print a decoded object",
		Args:  cobra.ExactArgs(1),
		RunE: withRepo(func(s *session, args []string) error {
			h, err := object.ParseHash(args[0])
			if err != nil {
				return err
			}
			o, err := s.CatFile(h)
			if err != nil {
				return err
			}
			printObject(o)
			return nil
		}),
	}

	var lsTreeCmd = &cobra.Command{
		Use:   "ls-tree [commit]",
		Short: "List the tree of a commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRepo(func(s *session, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			h, err := resolveCommit(s, arg)
			if err != nil {
				return err
			}
			entries, err := s.LsTree(h)
			if err != nil {
				return err
			}
			for _, e := range entries {
				blob, err := s.Objects().ReadBlob(e.Hash)
				if err != nil {
					return err
				}
				fmt.Printf("%s blob %s %8s\t%s\n",
					e.Mode, e.Hash, humanize.Bytes(uint64(len(blob.Content))), e.Name)
			}
			return nil
		}),
	}

	var diffCmd = &cobra.Command{
		Use:   "diff <path> [commit]",
		Short: "Show changes between a commit and the worktree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextLines, _ := cmd.Flags().GetInt("context")

			s, err := openRepo()
			if err != nil {
				return err
			}
			defer s.Close()

			var arg string
			if len(args) == 2 {
				arg = args[1]
			}
			h, err := resolveCommit(s, arg)
			if err != nil {
				return err
			}
			result, err := s.Diff(h, args[0], contextLines)
			if err != nil {
				return err
			}
			if result.Empty() {
				return nil
			}
			fmt.Printf("diff --clumsy a/%s b/%s\n", args[0], args[0])
			printColoredDiff(result.Format())
			return nil
		},
	}
	diffCmd.Flags().IntP("context", "U", 3, "Lines of context")

	var hashObjectCmd = &cobra.Command{
		Use:   "hash-object <path>",
		Short: "Compute the blob hash of a worktree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")

			s, err := openRepo()
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := s.HashFile(args[0], write)
			if err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		},
	}
	hashObjectCmd.Flags().BoolP("write", "w", false, "Store the blob")

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "List everything stored in the repository and worktree",
		RunE: withRepo(func(s *session, args []string) error {
			entries, err := s.Dump()
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan).SprintFunc()
			var total uint64
			for _, e := range entries {
				fmt.Printf("%-8s %8s  %s\n", cyan(e.Area), humanize.Bytes(uint64(e.Size)), e.Path)
				total += uint64(e.Size)
			}
			fmt.Printf("%d paths, %s\n", len(entries), humanize.Bytes(total))
			return nil
		}),
	}

	var watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stage worktree files automatically as they change",
		RunE: withRepo(func(s *session, args []string) error {
			root := s.cfg.Storage.Worktree
			if root == "" {
				root = "."
			}
			w, err := watch.New(root, s, logger)
			if err != nil {
				return err
			}
			defer w.Close()

			green := color.New(color.FgGreen).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()
			w.OnEvent = func(e watch.Event) {
				if e.Err != nil {
					fmt.Printf("%s %s: %v\n", red("failed"), e.Path, e.Err)
					return
				}
				fmt.Printf("%s %s %s\n", green("staged"), e.Hash.Short(), e.Path)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", root)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}),
	}

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the repository over HTTP",
		RunE: withRepo(func(s *session, args []string) error {
			if err := s.Init(); err != nil {
				return err
			}

			addr := s.cfg.Addr()
			srv := &http.Server{
				Addr:    addr,
				Handler: api.NewServer(s.Repository, logging.Wrap(logger)),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			fmt.Printf("Listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (JSON or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine operations")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(catFileCmd)
	rootCmd.AddCommand(lsTreeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(hashObjectCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func printObject(o object.Object) {
	switch v := o.(type) {
	case *object.Blob:
		os.Stdout.Write(v.Content)
	case *object.Tree:
		for _, e := range v.Entries {
			fmt.Printf("%s blob %s\t%s\n", e.Mode, e.Hash, e.Name)
		}
	case *object.Commit:
		os.Stdout.Write(v.Payload())
	}
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
