package routes

import (
	"github.com/Adilbek99/volunteer-system/handlers"
	"github.com/Adilbek99/volunteer-system/metrics"
	"github.com/Adilbek99/volunteer-system/middleware"
	"github.com/Adilbek99/volunteer-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Auth,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	eventHandler *handlers.EventHandler,
	registrationHandler *handlers.RegistrationHandler,
	teamHandler *handlers.TeamHandler,
	inviteHandler *handlers.InviteHandler,
	termsHandler *handlers.TermsHandler,
	evaluationHandler *handlers.EvaluationHandler,
	notificationHandler *handlers.NotificationHandler,
	categoryHandler *handlers.CategoryHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Технические маршруты
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	// WebSocket проверяет токен самостоятельно (параметр запроса)
	router.Get("/ws", webSocketHandler.ServeWs)

	// Аутентификация
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/confirm-email", authHandler.ConfirmEmail)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/first-login", authHandler.CompleteFirstLogin)
		})
	})

	// Профиль текущего пользователя
	router.Route("/me", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/", userHandler.GetMe)
		r.Put("/", userHandler.UpdateMe)
		r.Post("/password", userHandler.ChangePassword)
		r.Post("/avatar", userHandler.UploadAvatar)
		r.Get("/registrations", registrationHandler.ListMine)
		r.Get("/evaluations", evaluationHandler.ListMine)
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/{userID}", userHandler.GetByID)
	})

	// События
	router.Route("/events", func(r chi.Router) {
		// Публичные маршруты для просмотра событий
		r.Get("/", eventHandler.List)
		r.Get("/{eventID}", eventHandler.GetByID)
		r.Get("/{eventID}/seats", eventHandler.AvailableSeats)
		r.Get("/{eventID}/teams", teamHandler.ListByEvent)

		// Маршруты, требующие входа
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{eventID}/register", registrationHandler.Register)
			r.Get("/{eventID}/terms", termsHandler.GetForm)
			r.Post("/{eventID}/terms", termsHandler.Accept)
		})

		// Защищенные маршруты только для администраторов
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", eventHandler.Create)
			r.Put("/{eventID}", eventHandler.Update)
			r.Patch("/{eventID}/status", eventHandler.UpdateStatus)
			r.Delete("/{eventID}", eventHandler.Delete)
			r.Post("/{eventID}/image", eventHandler.UploadImage)
			r.Get("/{eventID}/registrations", registrationHandler.ListByEvent)
			r.Get("/{eventID}/evaluations", evaluationHandler.ListByEvent)
		})
	})

	// Регистрации
	router.Route("/registrations", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Delete("/{registrationID}", registrationHandler.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleAdmin))
			r.Patch("/{registrationID}/confirm", registrationHandler.Confirm)
		})
	})

	// Команды
	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", teamHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Put("/{teamID}", teamHandler.Update)
			r.Post("/{teamID}/members", teamHandler.AddMember)
			r.Delete("/{teamID}/members/{userID}", teamHandler.RemoveMember)
			r.Post("/{teamID}/invites", inviteHandler.Create)
			r.Get("/{teamID}/invites", inviteHandler.ListByTeam)
			r.Delete("/{teamID}/invites/{inviteID}", inviteHandler.Delete)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", teamHandler.Create)
			r.Delete("/{teamID}", teamHandler.Delete)
		})
	})

	// Приглашения в команды
	router.Route("/invites", func(r chi.Router) {
		r.Get("/", inviteHandler.GetByToken)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/accept", inviteHandler.Accept)
		})
	})

	// Оценки волонтёров
	router.Route("/evaluations", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Post("/", evaluationHandler.CreatePeer)
	})

	// Уведомления (REST-фолбэк к WebSocket)
	router.Route("/notifications", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/", notificationHandler.List)
		r.Get("/unread-count", notificationHandler.UnreadCount)
		r.Patch("/{notificationID}/read", notificationHandler.MarkRead)
		r.Patch("/read-all", notificationHandler.MarkAllRead)
	})

	// Категории событий
	router.Route("/categories", func(r chi.Router) {
		r.Get("/", categoryHandler.List)
		r.Get("/{categoryID}", categoryHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/", categoryHandler.Create)
			r.Put("/{categoryID}", categoryHandler.Update)
			r.Delete("/{categoryID}", categoryHandler.Delete)
			r.Post("/{categoryID}/image", categoryHandler.UploadImage)
		})
	})

	// Администрирование
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin))

		r.Get("/dashboard", adminHandler.DashboardStats)
		r.Get("/users", userHandler.List)
		r.Post("/users", adminHandler.ProvisionAccount)
		r.Patch("/users/{userID}/role", adminHandler.ChangeRole)
		r.Patch("/users/{userID}/active", adminHandler.SetActive)
		r.Post("/evaluations", evaluationHandler.CreateAdmin)
		r.Post("/terms/questions", termsHandler.CreateQuestion)
		r.Delete("/terms/questions/{questionID}", termsHandler.DeleteQuestion)
	})
}
