package http

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"smartdocs/internal/ai"
	appsvc "smartdocs/internal/app"
	"smartdocs/internal/bootstrap"
	"smartdocs/internal/cache"
	"smartdocs/internal/embedding"
	"smartdocs/internal/ingest"
	"smartdocs/internal/pkg/pdfextract"
	"smartdocs/internal/platform/rabbitmq"
	"smartdocs/internal/qa"
	"smartdocs/internal/repository"
	"smartdocs/internal/search"
	"smartdocs/internal/textproc"
	"smartdocs/internal/transport/http/handler"
	"smartdocs/internal/transport/http/middleware"
	"smartdocs/internal/vectorstore"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewQASessionRepository(app.MySQL)
	recordRepo := repository.NewIngestRecordRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	llmClient := ai.NewOpenAICompatibleClient()
	embedClient := ai.NewEmbeddingClient(llmClient, ai.EmbeddingConfig{
		BaseURL: app.Config.Embedding.BaseURL,
		APIKey:  app.Config.Embedding.APIKey,
		Model:   app.Config.Embedding.Model,
	})

	embedCache, err := embedding.NewCache(app.CacheDB)
	if err != nil {
		return nil, err
	}
	log.Printf("embedding cache loaded with %d entries", embedCache.Len())

	embedService := embedding.NewService(embedClient, embedCache, embedding.Options{
		MaxAttempts:       app.Config.Embedding.MaxAttempts,
		RequestsPerMinute: app.Config.Embedding.RequestsPerMinute,
		Dimension:         app.Config.Embedding.Dimension,
	})

	store := vectorstore.New(app.MySQL)

	strategy := textproc.StrategySentences
	if app.Config.Ingest.ChunkStrategy == string(textproc.StrategyTokens) {
		strategy = textproc.StrategyTokens
	}
	chunker := textproc.NewChunker(app.Config.Ingest.OverlapTokens)
	ingestor := ingest.NewIngestor(pdfextract.NewExtractor(), chunker, embedService, store, strategy)
	batch := ingest.NewBatch(ingestor, app.Config.Ingest.Workers)

	publisher := rabbitmq.NewIngestEventPublisher(app.MQConn, app.Config.RabbitMQ.IngestAuditQueue)
	ingestService := appsvc.NewIngestService(batch, store, recordRepo, publisher)

	resultCache := cache.NewSearchCache(app.Redis,
		time.Duration(app.Config.Search.ResultCacheTTLSeconds)*time.Second)
	engine := search.NewEngine(embedService, store, resultCache)

	composer := qa.NewComposer(llmClient, ai.ChatConfig{
		BaseURL:        app.Config.LLM.BaseURL,
		APIKey:         app.Config.LLM.APIKey,
		Model:          app.Config.LLM.Model,
		Temperature:    app.Config.LLM.Temperature,
		TimeoutSeconds: app.Config.LLM.TimeoutSeconds,
	})
	qaService := appsvc.NewQAService(engine, composer, sessionRepo, app.Config.Search.TopK)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(ingestService, app.Config.App.UploadDir)
	qaHandler := handler.NewQAHandler(qaService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	docGroup := v1.Group("/documents")
	docGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	docGroup.POST("/upload", documentHandler.Upload)
	docGroup.GET("/records", documentHandler.ListRecords)
	docGroup.GET("/collection", documentHandler.CollectionStats)
	docGroup.DELETE("/collection", documentHandler.DeleteCollection)

	qaGroup := v1.Group("/qa")
	qaGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	qaGroup.POST("/ask", qaHandler.Ask)
	qaGroup.GET("/sessions", qaHandler.ListSessions)
	qaGroup.GET("/sessions/:id/turns", qaHandler.ListTurns)

	return router, nil
}
