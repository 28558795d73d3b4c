package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizforge/internal/client"
	"quizforge/internal/config"
	"quizforge/internal/domain"
	"quizforge/internal/logger"
	"quizforge/internal/session"
)

// clientRuntime is what every client command needs: config, a logger, the
// persisted session and an API client that reads its token.
type clientRuntime struct {
	cfg     config.Config
	log     *zap.Logger
	session *session.Holder
	api     *client.Client
	in      *bufio.Reader
	out     io.Writer
}

func newClientRuntime(cmd *cobra.Command, configPath string) (*clientRuntime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// Client commands keep the terminal for prompts; routine logs go to the file only.
	level := cfg.Log.Level
	if cfg.Log.File == "" && level == "info" {
		level = "warn"
	}
	log, err := logger.New(level, cfg.Log.File)
	if err != nil {
		return nil, err
	}

	path := cfg.Client.SessionFile
	if path == "" {
		path = session.DefaultPath()
	}
	holder := session.NewHolder(session.NewFileStore(path), log)
	if err := holder.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return &clientRuntime{
		cfg:     cfg,
		log:     log,
		session: holder,
		api:     client.New(cfg.Client.BackendURL, holder, client.WithLogger(log)),
		in:      bufio.NewReader(cmd.InOrStdin()),
		out:     cmd.OutOrStdout(),
	}, nil
}

func (r *clientRuntime) close() {
	_ = r.log.Sync()
}

// prompt prints label and reads one trimmed line.
func (r *clientRuntime) prompt(label string) (string, error) {
	return readLine(r.in, r.out, label)
}

// requireUser returns the signed-in user or an AuthError telling how to fix it.
func (r *clientRuntime) requireUser() (domain.User, error) {
	user, ok := r.session.Identity()
	if !ok {
		return domain.User{}, &domain.AuthError{Reason: "not signed in, run `quizforge login` first"}
	}
	return user, nil
}

// login asks for credentials when they were not given and stores the session.
func (r *clientRuntime) login(ctx context.Context, username, password string) (domain.User, error) {
	var err error
	if username == "" {
		if username, err = r.prompt("Username: "); err != nil {
			return domain.User{}, err
		}
	}
	if password == "" {
		if password, err = r.prompt("Password: "); err != nil {
			return domain.User{}, err
		}
	}
	res, err := r.api.Login(ctx, username, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := r.session.SignIn(ctx, res.Token, res.User); err != nil {
		return domain.User{}, fmt.Errorf("save session: %w", err)
	}
	r.log.Info("signed in", zap.String("user_id", res.User.ID))
	return res.User, nil
}

func readLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	if label != "" {
		fmt.Fprint(out, label)
	}
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
