package main

import (
	"fmt"
	"net/http"
	"os"

	"gitbridge/pkg/broker"
	"gitbridge/pkg/client"
	"gitbridge/pkg/git"
	"gitbridge/pkg/progress"
	"gitbridge/pkg/remote"
	"gitbridge/pkg/remote/github"
	"gitbridge/pkg/remote/gitlab"
	"gitbridge/pkg/scheduler"
	"gitbridge/pkg/store"
	"gitbridge/pkg/util/config"
	"gitbridge/pkg/util/context"

	"github.com/labstack/echo/v4"
	"github.com/neko-neko/echo-logrus/v2/log"
	"github.com/pkg/errors"
)

const (
	envConfigFile    = "CONFIG_FILE"
	envPort          = "PORT"
	envDatabaseURL   = "DATABASE_URL"
	envBrokerType    = "BROKER_TYPE"
	envGithubBaseURL = "GITHUB_BASE_URL"
	envGitlabBaseURL = "GITLAB_BASE_URL"

	eventsExchange = "gitbridge.ex.events"
)

// setting reads a config file entry, falling back to the environment.
func setting(key, envName string) string {
	if v := config.GetString(key); v != "" {
		return v
	}
	return os.Getenv(envName)
}

func main() {
	// Create context, echo object and set logger
	e := echo.New()
	ctx := context.Background()
	l := log.MyLogger{Logger: ctx.Logger().Logger}
	e.Logger = &l

	config.SetConfigFile(os.Getenv(envConfigFile))
	if err := config.ReadInConfig(); err != nil {
		e.Logger.Fatal(errors.Wrap(err, "failed to read config file"))
		os.Exit(1)
	}

	s, err := newStore(ctx)
	if err != nil {
		e.Logger.Fatal(errors.Wrap(err, "failed to instantiate store"))
		os.Exit(1)
	}

	registry := progress.NewRegistry()

	//Instantiate migration engine
	sc, err := newScheduler(ctx, s, registry)
	if err != nil {
		e.Logger.Fatal(errors.Wrap(err, "failed to instantiate scheduler"))
		os.Exit(1)
	}

	//Setup routes
	h := handlers{
		sc:       sc,
		store:    s,
		registry: registry,
	}
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "gitbridge")
	})
	e.Add(client.SubmitMethod, client.SubmitPath, h.Submit)
	e.Add(client.ListRunsMethod, client.ListRunsPath, h.ListRuns)
	e.Add(client.RunStateMethod, client.RunStatePath, h.RunState)
	e.Add(client.StatsMethod, client.StatsPath, h.Stats)
	e.Add(client.CancelFetchMethod, client.CancelFetchPath, h.CancelFetch)
	e.Add(client.CleanupMethod, client.CleanupPath, h.Cleanup)
	e.GET(fmt.Sprintf("/progress/:%s", client.OperationIDParam), h.Progress)

	e.HideBanner = true
	e.HidePort = true

	port := setting("server.port", envPort)
	if port == "" {
		port = "8080"
	}
	e.Logger.Infof("http server started on 127.0.0.1:%s", port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%s", port)))
}

// newStore selects the run store backend: postgres when a database URL is
// configured, in-memory otherwise.
func newStore(ctx context.Context) (store.Store, error) {
	if url := setting("store.databaseUrl", envDatabaseURL); url != "" {
		return store.NewPostgresStore(ctx, url)
	}
	ctx.Logger().Warnf("%s not set, runs are stored in memory and lost on restart", envDatabaseURL)
	return store.NewInMemoryStore(), nil
}

// newScheduler instantiates the migration scheduler with the real provider
// clients. The broker is optional: lifecycle events are only published when
// one is configured.
func newScheduler(ctx context.Context, s store.Store, registry *progress.Registry) (scheduler.Scheduler, error) {
	var b broker.Broker
	if config.Get("broker.type") != nil || os.Getenv(envBrokerType) != "" {
		var err error
		b, err = broker.NewFromConfig(ctx, "broker")
		if err != nil {
			return nil, errors.Wrap(err, "cannot instantiate broker")
		}
	}

	githubBase := setting("github.baseUrl", envGithubBaseURL)
	gitlabBase := setting("gitlab.baseUrl", envGitlabBaseURL)
	source := func(ctx context.Context, token string) (remote.Provider, error) {
		return github.New(ctx, token, githubBase)
	}
	target := func(ctx context.Context, token string) (remote.Provider, error) {
		return gitlab.New(token, gitlabBase)
	}

	return scheduler.NewScheduler(scheduler.Config{
		Store:    s,
		Sync:     git.NewSync(git.NewRunner(), registry),
		Registry: registry,
		Source:   source,
		Target:   target,
		Broker:   b,
		Exchange: eventsExchange,
	})
}

type handlers struct {
	sc       scheduler.Scheduler
	store    store.Store
	registry *progress.Registry
}
