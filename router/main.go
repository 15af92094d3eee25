package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ultraintel/counselor-api/config"
	"github.com/ultraintel/counselor-api/database"
	"github.com/ultraintel/counselor-api/handlers"
	interview_handlers "github.com/ultraintel/counselor-api/handlers/interview"
	"github.com/ultraintel/counselor-api/services"
	"github.com/ultraintel/counselor-api/services/openai"
	"github.com/ultraintel/counselor-api/services/spaces"
	"github.com/ultraintel/counselor-api/utils/cache"
	"github.com/ultraintel/counselor-api/utils/middleware"
)

// SetupRoutes wires the full service graph and mounts every route. The
// returned interview service is handed to the cron manager.
func SetupRoutes(app *fiber.App, store database.Storage, env *config.EnvironmentVariable) *services.InterviewService {
	db := store.GetDB()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	})

	// Session store: Redis when configured, in-process otherwise
	sessionTTL := time.Duration(env.SESSION_TTL_MINUTES) * time.Minute
	var sessionStore services.SessionStore
	if env.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Falling back to in-memory sessions.", err)
			sessionStore = services.NewMemorySessionStore()
		} else {
			sessionStore = services.NewRedisSessionStore(redisCache, sessionTTL)
		}
	} else {
		sessionStore = services.NewMemorySessionStore()
	}

	gateway := services.NewOpenAIGateway(openai.NewClient(openai.Config{
		APIKey:  env.OPENAI_API_KEY,
		BaseURL: env.OPENAI_BASE_URL,
		Model:   env.OPENAI_MODEL,
	}))

	// Export archive is optional
	var archive *spaces.SpacesClient
	if env.SPACES_ACCESS_KEY != "" && env.SPACES_BUCKET != "" {
		var err error
		archive, err = spaces.NewSpacesClient(spaces.SpacesConfig{
			AccessKey: env.SPACES_ACCESS_KEY,
			SecretKey: env.SPACES_SECRET_KEY,
			Bucket:    env.SPACES_BUCKET,
			Region:    env.SPACES_REGION,
			Endpoint:  env.SPACES_ENDPOINT,
		})
		if err != nil {
			log.Printf("Warning: Failed to create Spaces client: %v. Exports stay local.", err)
		}
	}

	subjectService := services.NewSubjectService(db)
	assignmentService := services.NewAssignmentService(db)
	exportService := services.NewExportService(env.EXPORT_DIR, subjectService, assignmentService, archive)
	interviewService := services.NewInterviewService(db, sessionStore, gateway, subjectService, assignmentService, exportService)

	interviewHandler := interview_handlers.NewInterviewHandler(interviewService)

	app.Get("/ping", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store)
	})

	v1 := app.Group("/api/v1")

	interviews := v1.Group("/interviews")
	interviews.Post("/", interviewHandler.Start)
	interviews.Get("/:id", interviewHandler.GetStatus)
	interviews.Post("/:id/messages", interviewHandler.SendMessage)
	interviews.Post("/:id/responses", interviewHandler.AnswerQuestion)
	interviews.Post("/:id/items", interviewHandler.AddItem)
	interviews.Post("/:id/items/finish", interviewHandler.FinishItems)
	interviews.Post("/:id/summary", interviewHandler.GenerateSummary)
	interviews.Get("/:id/assignments", interviewHandler.GetAssignments)

	return interviewService
}
