package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"ats_workflow/internal/app"
	"ats_workflow/internal/domain/notification"
	"ats_workflow/internal/infra/awsclient"
	"ats_workflow/internal/infra/cognito"
	"ats_workflow/internal/infra/config"
	idb "ats_workflow/internal/infra/database"
	"ats_workflow/internal/infra/logger"
	"ats_workflow/internal/infra/mailer"
	"ats_workflow/internal/infra/queue"
	"ats_workflow/internal/infra/telegram"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	env := &appEnv{}
	root := &cobra.Command{
		Use:           "ats",
		Short:         "Application lifecycle workflow engine for the ATS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			env.close()
		},
	}
	root.AddCommand(
		newTransitionCommand(env),
		newSubmitCommand(env),
		newHistoryCommand(env),
		newProvisionCommand(env),
		newNotifyOnceCommand(env),
		newNotifyWorkerCommand(env),
	)
	return root
}

// appEnv holds what every command shares: configuration loaded once, and
// lazily opened connections.
type appEnv struct {
	cfg    *config.AppConfig
	db     *sql.DB
	awsCfg *aws.Config
}

func (r *appEnv) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load application configuration: %w", err)
	}
	r.cfg = cfg
	logger.Init(cfg)
	logger.Log.WithField("environment", cfg.Environment).Debug("Configuration loaded")
	return nil
}

func (r *appEnv) close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *appEnv) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	if err := r.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := idb.NewPostgresConnection(ctx, r.cfg.DatabaseURL, r.cfg.DBTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *appEnv) awsConfig(ctx context.Context) (aws.Config, error) {
	if r.awsCfg != nil {
		return *r.awsCfg, nil
	}
	cfg, err := awsclient.Load(ctx, r.cfg.AWSRegion)
	if err != nil {
		return aws.Config{}, err
	}
	r.awsCfg = &cfg
	return cfg, nil
}

func (r *appEnv) sqsQueue(ctx context.Context) (*queue.SQSQueue, error) {
	if err := r.cfg.RequireQueue(); err != nil {
		return nil, err
	}
	awsCfg, err := r.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), r.cfg.NotifyQueueURL, queue.ReceiveOptions{
		BatchSize:         r.cfg.NotifyBatchSize,
		WaitSeconds:       r.cfg.NotifyWaitSeconds,
		VisibilitySeconds: r.cfg.NotifyVisibilitySeconds,
	}), nil
}

// alerter returns nil when ops alerts are not configured.
func (r *appEnv) alerter() notification.Alerter {
	if !r.cfg.OpsAlertsEnabled() {
		return nil
	}
	a, err := telegram.NewOpsAlerter(r.cfg.TelegramToken, r.cfg.OpsTelegramChatID)
	if err != nil {
		logger.Log.WithError(err).Warn("Ops alerts disabled")
		return nil
	}
	return a
}

func (r *appEnv) lifecycleService(ctx context.Context) (*app.LifecycleService, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	q, err := r.sqsQueue(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewLifecycleService(
		idb.NewPostgresApplicationRepository(db),
		q,
		logger.Component("lifecycle"),
		r.cfg.DBTimeout,
	), nil
}

func (r *appEnv) provisioningService(ctx context.Context) (*app.ProvisioningService, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	awsCfg, err := r.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewProvisioningService(
		cognito.NewGroupAssigner(cip.NewFromConfig(awsCfg)),
		idb.NewPostgresUserRepository(db),
		r.cfg.RoleGroups,
		r.alerter(),
		logger.Component("user-sync"),
		r.cfg.DBTimeout,
	), nil
}

func (r *appEnv) notificationWorker(ctx context.Context) (*app.NotificationWorker, *queue.SQSQueue, error) {
	if err := r.cfg.RequireWorker(); err != nil {
		return nil, nil, err
	}
	q, err := r.sqsQueue(ctx)
	if err != nil {
		return nil, nil, err
	}
	awsCfg, err := r.awsConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	worker := app.NewNotificationWorker(
		mailer.NewSESSender(ses.NewFromConfig(awsCfg), r.cfg.SenderEmail),
		r.alerter(),
		logger.Component("email-worker"),
	)
	return worker, q, nil
}
