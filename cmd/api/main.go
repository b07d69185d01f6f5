package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gradbridge/presence-backend-go/internal/config"
	appHTTP "github.com/gradbridge/presence-backend-go/internal/handler/http"
	"github.com/gradbridge/presence-backend-go/internal/pkg/cron"
	"github.com/gradbridge/presence-backend-go/internal/pkg/database"
	"github.com/gradbridge/presence-backend-go/internal/pkg/email"
	"github.com/gradbridge/presence-backend-go/internal/pkg/jwt"
	"github.com/gradbridge/presence-backend-go/internal/pkg/sse"
	"github.com/gradbridge/presence-backend-go/internal/pkg/tzclock"
	"github.com/gradbridge/presence-backend-go/internal/repository/postgresql"
	attendanceService "github.com/gradbridge/presence-backend-go/internal/service/attendance"
	serviceAuth "github.com/gradbridge/presence-backend-go/internal/service/auth"
	notificationService "github.com/gradbridge/presence-backend-go/internal/service/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	// All date keys and schedules resolve against the business timezone.
	loc, err := tzclock.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		log.Fatal("Failed to load business timezone: ", err)
	}
	clock := tzclock.SystemClock{}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	userRepo := postgresql.NewUserRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	emailService, err := email.NewEmailService(cfg.SMTP)
	if err != nil {
		log.Fatal("Failed to initialize email service: ", err)
	}
	hub := sse.NewHub()

	authSvc := serviceAuth.NewAuthService(userRepo, jwtService)
	notifierSvc := notificationService.NewNotificationService(notificationRepo, userRepo, hub, emailService)
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, clock, loc, cfg.Business.ClockInCutoffHour)

	scheduler := cron.NewScheduler(loc)
	jobs := cron.NewAttendanceJobs(attendanceRepo, userRepo, notifierSvc, clock, loc, cfg.Business)
	if err := jobs.RegisterJobs(scheduler, cfg.Jobs); err != nil {
		log.Fatal("Failed to register jobs: ", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := appHTTP.NewAuthHandler(authSvc)
	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notificationRepo, hub, jwtService)

	router := appHTTP.NewRouter(
		jwtService,
		cfg.App.Env,
		authHandler,
		attendanceHandler,
		notificationHandler,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Println("Server shutdown error:", err)
	}
}
