package boot

import (
	"context"
	"hbs/src/config"
	"hbs/src/db"
	"hbs/src/lib"
	"hbs/src/models"
	"hbs/src/notify"
	"hbs/src/payments"
	"hbs/src/store"
	"hbs/src/syncer"
	"hbs/src/types"
	"hbs/src/vault"
	"hbs/src/worker"
	"log"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Organization{},
		&models.Branch{},
		&models.Reservation{},
		&models.ReservationSyncHistory{},
		&models.ReservationNotificationLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// App holds the wired components. Handlers reach them through GetApp.
type App struct {
	Store      *store.Store
	Vault      *vault.Vault
	Pool       *worker.Pool
	Reconciler *syncer.Reconciler
	Jobs       *syncer.Jobs
	Dispatcher *notify.Dispatcher
	Links      *payments.LinkService
	Webhooks   *payments.WebhookReconciler
	Guests     *notify.GuestResponder
}

var app *App

func GetApp() *App {
	if app != nil {
		return app
	}
	app = InitApp(InitDb())
	return app
}

// NewApp replaces the app instance, used by tests.
func NewApp(a *App) *App {
	app = a
	return app
}

// InitApp wires the sync and dispatch components onto one storage layer.
// The worker pool and the reconciler reference each other through the
// enqueue closure, so the pool variable is bound before its handler.
func InitApp(gdb *gorm.DB) *App {
	s := store.NewGormStore(gdb)
	v := vault.New(s.Tenants, config.EncryptionKey())

	links := payments.NewLinkService(s.Reservations, v)
	dispatcher := notify.NewDispatcher(s, v, links, notify.NewEmailSender())

	var pool *worker.Pool
	enqueue := func(ctx context.Context, reservationID uint, notificationType types.NotificationType) {
		err := pool.Enqueue(ctx, worker.Task{
			Kind:             worker.TaskDispatch,
			ReservationID:    reservationID,
			NotificationType: notificationType,
		})
		if err != nil {
			log.Printf("[Boot] failed to enqueue %s for reservation %d: %s\n", notificationType, reservationID, err.Error())
		}
	}

	reconciler := syncer.New(s, v, nil, enqueue)
	webhooks := payments.NewWebhookReconciler(s.Reservations, enqueue)
	guests := notify.NewGuestResponder(s.Reservations, v, links, reconciler)

	handler := func(ctx context.Context, task worker.Task) error {
		switch task.Kind {
		case worker.TaskDispatch:
			_, err := dispatcher.Dispatch(ctx, task.ReservationID, task.NotificationType)
			return err
		case worker.TaskPaymentEvent:
			event, err := payments.ParsePaymentEvent(task.Payload)
			if err != nil {
				return err
			}
			return webhooks.HandlePaymentEvent(ctx, event)
		case worker.TaskInboundMessage:
			tenant := types.Tenant{OrganizationID: task.OrganizationID, BranchID: task.BranchID}
			return guests.HandleInboundMessage(ctx, tenant, task.From, task.Text, task.ProfileName)
		}
		log.Printf("[Boot] dropping task with unknown kind %q\n", task.Kind)
		return nil
	}
	pool = worker.NewPool(lib.GetRedisClient(), handler, worker.DefaultRetryPolicy())

	jobs := syncer.NewJobs(s, v, reconciler, nil, enqueue)

	return &App{
		Store:      s,
		Vault:      v,
		Pool:       pool,
		Reconciler: reconciler,
		Jobs:       jobs,
		Dispatcher: dispatcher,
		Links:      links,
		Webhooks:   webhooks,
		Guests:     guests,
	}
}

// InitScheduler starts the gocron scheduler and registers the per-tenant
// sync jobs.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	a := GetApp()
	if err := a.Jobs.Register(context.Background()); err != nil {
		log.Printf("Error registering tenant jobs: %s\n", err.Error())
	}
	sched.Start()
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
}

// InitWorkers starts the dispatch worker pool.
func InitWorkers(ctx context.Context) {
	GetApp().Pool.Run(ctx)
}
