package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Accesos-api/internal/application/visitas"
	"github.com/jhoicas/Accesos-api/internal/domain/codigo"
	"github.com/jhoicas/Accesos-api/internal/infrastructure/directorio"
	"github.com/jhoicas/Accesos-api/internal/infrastructure/notificacion"
	infrapdf "github.com/jhoicas/Accesos-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Accesos-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Accesos-api/internal/interfaces/http"
	"github.com/jhoicas/Accesos-api/pkg/config"
	"github.com/jhoicas/Accesos-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	visitaRepo := postgres.NewVisitaRepository(pool)
	auditoriaRepo := postgres.NewAuditoriaRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// El directorio (visitantes, empresas, sedes, zonas, puertas) cambia
	// poco; la caché evita un round-trip por referencia en cada programación.
	directorioRepo := postgres.NewDirectorioRepository(pool)
	directorioCache := directorio.NewCache(directorioRepo, 5*time.Minute)

	emisor, err := codigo.NewEmisor(cfg.Codigo.Secreto, cfg.Codigo.SecretoAnterior)
	if err != nil {
		log.Fatal().Err(err).Msg("secreto del código de visita")
	}

	notificaSink := notificacion.NewLogSink(log)
	paseGenerator := infrapdf.NewMarotoPaseGenerator()

	visitasUC := visitas.NewUseCase(
		visitaRepo, auditoriaRepo, notificaSink, directorioCache,
		emisor, txRunner, paseGenerator, log,
		cfg.Barrido.MargenPorVencer,
	)

	// Barrido de expiración: única vía por la que una visita llega a EXPIRADA.
	sweeper := visitas.NewSweeper(visitasUC, cfg.Barrido.Intervalo, log)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.Ejecutar(sweepCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Accesos API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		VisitasUC: visitasUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
