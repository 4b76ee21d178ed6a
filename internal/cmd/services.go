package main

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/Williamgithubit/bsm-backend/internal/athletes"
	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/gateway"
	"github.com/Williamgithubit/bsm-backend/internal/media"
)

type Services struct {
	Athletes *athletes.Service
	Media    *media.Service
	Gateway  *gateway.Service
}

func setupServices(ctx context.Context, cfg Config, store docstore.Store) (*Services, error) {
	// Wire up dependency injection chain
	// Store layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	storage, err := media.NewS3Storage(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	mediaApp := media.NewApp(storage, clock)

	athletesRepo := athletes.NewRepository(store, clock)
	athletesApp := athletes.NewApp(athletesRepo, mediaApp)
	athletesService := athletes.NewService(athletesApp)

	mediaService := media.NewService(mediaApp, athletesApp)

	gatewayService := gateway.NewService(athletesApp, gateway.DefaultConnectionConfig())

	return &Services{
		Athletes: athletesService,
		Media:    mediaService,
		Gateway:  gatewayService,
	}, nil
}
