// Package secrets получает строку подключения к мастер-базе: напрямую из
// конфигурации или из AWS Systems Manager Parameter Store.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/easytomanagexyz/admin-backend/internal/config"
	"github.com/easytomanagexyz/admin-backend/internal/lib/sl"
)

// ErrIncompleteParams возвращается, если в Parameter Store нет обязательных частей DSN.
var ErrIncompleteParams = errors.New("incomplete database parameters")

const defaultPort = "5432"

// ParameterClient — подмножество клиента SSM, которое нужно резолверу.
type ParameterClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver собирает строку подключения к базе.
type Resolver struct {
	log    *slog.Logger
	client ParameterClient
	cfg    config.Database
}

// NewResolver создаёт резолвер с готовым клиентом SSM.
func NewResolver(log *slog.Logger, client ParameterClient, cfg config.Database) *Resolver {
	return &Resolver{log: log, client: client, cfg: cfg}
}

// NewSSMClient создаёт клиента SSM для указанного региона из стандартной цепочки учётных данных.
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	const op = "secrets.NewSSMClient"
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// ResolveDatabaseURL возвращает DSN мастер-базы.
//
// Порядок: DATABASE_URL, затем параметр с полным URL, затем отдельные параметры под префиксом.
func ResolveDatabaseURL(ctx context.Context, log *slog.Logger, cfg config.Database) (string, error) {
	const op = "secrets.ResolveDatabaseURL"
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if !cfg.SSM.Enabled {
		return "", fmt.Errorf("%s: no database url configured", op)
	}
	client, err := NewSSMClient(ctx, cfg.SSM.Region)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return NewResolver(log, client, cfg).Resolve(ctx)
}

// Resolve читает DSN из Parameter Store.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	const op = "secrets.Resolver.Resolve"
	if r.cfg.URL != "" {
		return r.cfg.URL, nil
	}

	if r.cfg.SSM.FullURLParam != "" {
		full, err := r.parameter(ctx, r.cfg.SSM.FullURLParam)
		switch {
		case err == nil && full != "":
			r.log.Info("database url resolved from parameter store", slog.String("param", r.cfg.SSM.FullURLParam))
			return full, nil
		case err != nil && !isNotFound(err):
			return "", fmt.Errorf("%s: %w", op, err)
		}
		r.log.Debug("full url parameter missing, falling back to discrete parameters",
			slog.String("param", r.cfg.SSM.FullURLParam))
	}

	params := r.discreteParams(ctx)
	if params.User == "" || params.Password == "" || params.Host == "" {
		return "", fmt.Errorf("%s: %w under %s", op, ErrIncompleteParams, r.cfg.SSM.Prefix)
	}
	if params.Name == "" {
		params.Name = r.cfg.SSM.DefaultDBName
	}
	return BuildPostgresURL(params, r.cfg.SSM.SSLMode), nil
}

// DBParams — части строки подключения.
type DBParams struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

func (r *Resolver) discreteParams(ctx context.Context) DBParams {
	prefix := strings.TrimRight(r.cfg.SSM.Prefix, "/")
	read := func(suffix string) string {
		name := prefix + "/" + suffix
		v, err := r.parameter(ctx, name)
		if err != nil {
			// Отсутствующий параметр трактуется как пустой.
			r.log.Warn("cannot read parameter", slog.String("param", name), sl.Err(err))
			return ""
		}
		return v
	}
	return DBParams{
		User:     read("db-user"),
		Password: read("db-password"),
		Host:     read("db-host"),
		Port:     read("db-port"),
		Name:     read("db-name"),
	}
}

func (r *Resolver) parameter(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.Parameter == nil {
		return "", nil
	}
	return StripQuotes(aws.ToString(out.Parameter.Value)), nil
}

func isNotFound(err error) bool {
	var nf *types.ParameterNotFound
	return errors.As(err, &nf)
}

// StripQuotes убирает одну пару окружающих двойных кавычек.
func StripQuotes(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}

// BuildPostgresURL собирает DSN; логин и пароль экранируются.
func BuildPostgresURL(p DBParams, sslMode string) string {
	port := p.Port
	if port == "" {
		port = defaultPort
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, port),
		Path:   "/" + p.Name,
	}
	if sslMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslMode}}.Encode()
	}
	return u.String()
}
