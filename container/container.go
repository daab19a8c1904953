/*
Package container provides dependency injection capabilities for the briefing backend.

This package implements a simple dependency injection container that helps manage
service dependencies and reduces tight coupling between components.
*/
package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/Nexora-Open-Source/briefing-backend/cache"
	"github.com/Nexora-Open-Source/briefing-backend/digest"
	"github.com/Nexora-Open-Source/briefing-backend/handlers"
	"github.com/Nexora-Open-Source/briefing-backend/pipeline"
	"github.com/Nexora-Open-Source/briefing-backend/stages"
	"github.com/Nexora-Open-Source/briefing-backend/stream"
	"github.com/Nexora-Open-Source/briefing-backend/types"
	"github.com/Nexora-Open-Source/briefing-backend/utils"
	"github.com/sirupsen/logrus"
)

// PipelineSettings sizes the scheduler, retry policy, and lease
type PipelineSettings struct {
	Workers             int
	QueueSize           int
	BackpressureEnabled bool
	RejectThreshold     float64
	WaitTimeout         time.Duration
	MaxAttempts         int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	LeaseTTL            time.Duration
	FetchRequestsPerSec float64
}

// StreamSettings sizes subscriber buffers and hub lifecycle
type StreamSettings struct {
	BufferSize        int
	IdleGrace         time.Duration
	HeartbeatInterval time.Duration
}

// Dependencies carries everything InitializeServices needs to assemble
// the object graph.
type Dependencies struct {
	DatastoreClient *datastore.Client
	CacheManager    *cache.Manager
	Logger          *logrus.Logger
	Pipeline        PipelineSettings
	Stream          StreamSettings
	DigestUserIDs   []int64
}

// eventSink is the composite publisher the status store writes through.
// Invalidation runs before fan-out so a subscriber reacting to the event
// never reads a stale cached snapshot.
type eventSink struct {
	broadcaster *stream.Broadcaster
	cache       *cache.Manager
}

func (s *eventSink) Publish(ownerID int64, event types.UpdateEvent) {
	if s.cache != nil {
		_ = s.cache.InvalidateJobAt(event.Kind, event.EntityID, event.UpdatedAt)
	}
	s.broadcaster.Publish(ownerID, event)
}

// Container holds all service dependencies
type Container struct {
	mu              sync.RWMutex
	services        map[string]interface{}
	factories       map[string]func() (interface{}, error)
	singletons      map[string]interface{}
	datastoreClient *datastore.Client
	scheduler       *pipeline.Scheduler
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		services:   make(map[string]interface{}),
		factories:  make(map[string]func() (interface{}, error)),
		singletons: make(map[string]interface{}),
	}
}

// Register registers a service instance
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterFactory registers a factory function for lazy service creation
func (c *Container) RegisterFactory(name string, factory func() (interface{}, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// RegisterSingleton registers a singleton service
func (c *Container) RegisterSingleton(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[name] = service
}

// Get retrieves a service by name
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Check if service is already registered
	if service, exists := c.services[name]; exists {
		return service, nil
	}

	// Check if it's a singleton
	if singleton, exists := c.singletons[name]; exists {
		return singleton, nil
	}

	// Check if there's a factory for this service
	if factory, exists := c.factories[name]; exists {
		service, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to create service %s: %v", name, err)
		}
		return service, nil
	}

	return nil, fmt.Errorf("service %s not found", name)
}

// GetLogger retrieves the logger service
func (c *Container) GetLogger() (*logrus.Logger, error) {
	service, err := c.Get("logger")
	if err != nil {
		return nil, err
	}
	logger, ok := service.(*logrus.Logger)
	if !ok {
		return nil, fmt.Errorf("logger service is not of expected type")
	}
	return logger, nil
}

// GetStatusStore retrieves the status store service
func (c *Container) GetStatusStore() (*pipeline.StatusStore, error) {
	service, err := c.Get("store")
	if err != nil {
		return nil, err
	}
	store, ok := service.(*pipeline.StatusStore)
	if !ok {
		return nil, fmt.Errorf("store service is not of expected type")
	}
	return store, nil
}

// GetScheduler retrieves the scheduler service
func (c *Container) GetScheduler() (*pipeline.Scheduler, error) {
	service, err := c.Get("scheduler")
	if err != nil {
		return nil, err
	}
	scheduler, ok := service.(*pipeline.Scheduler)
	if !ok {
		return nil, fmt.Errorf("scheduler service is not of expected type")
	}
	return scheduler, nil
}

// GetBroadcaster retrieves the broadcaster service
func (c *Container) GetBroadcaster() (*stream.Broadcaster, error) {
	service, err := c.Get("broadcaster")
	if err != nil {
		return nil, err
	}
	broadcaster, ok := service.(*stream.Broadcaster)
	if !ok {
		return nil, fmt.Errorf("broadcaster service is not of expected type")
	}
	return broadcaster, nil
}

// GetCacheManager retrieves the cache manager service
func (c *Container) GetCacheManager() (*cache.Manager, error) {
	service, err := c.Get("cache")
	if err != nil {
		return nil, err
	}
	manager, ok := service.(*cache.Manager)
	if !ok {
		return nil, fmt.Errorf("cache service is not of expected type")
	}
	return manager, nil
}

// GetHandler retrieves the handler service
func (c *Container) GetHandler() (*handlers.Handler, error) {
	service, err := c.Get("handler")
	if err != nil {
		return nil, err
	}
	handler, ok := service.(*handlers.Handler)
	if !ok {
		return nil, fmt.Errorf("handler service is not of expected type")
	}
	return handler, nil
}

// InitializeServices initializes all core services with proper dependencies
func (c *Container) InitializeServices(deps Dependencies) error {
	logger := deps.Logger
	c.datastoreClient = deps.DatastoreClient

	// Register core services
	c.RegisterSingleton("logger", logger)
	c.RegisterSingleton("cache", deps.CacheManager)
	if deps.DatastoreClient != nil {
		c.RegisterSingleton("datastore", deps.DatastoreClient)
	}

	// Stream fan-out
	broadcaster := stream.NewBroadcaster(stream.BroadcasterConfig{
		BufferSize: deps.Stream.BufferSize,
		IdleGrace:  deps.Stream.IdleGrace,
	}, logger)
	c.RegisterSingleton("broadcaster", broadcaster)

	// Status store publishing through cache invalidation into the stream
	sink := &eventSink{broadcaster: broadcaster, cache: deps.CacheManager}
	store := pipeline.NewStatusStore(sink, logger)
	c.RegisterSingleton("store", store)

	// Scheduler with lease and retry policy
	leaser := pipeline.NewLeaser(deps.Pipeline.LeaseTTL)
	scheduler := pipeline.NewScheduler(store, leaser, pipeline.SchedulerConfig{
		Workers:             deps.Pipeline.Workers,
		QueueSize:           deps.Pipeline.QueueSize,
		BackpressureEnabled: deps.Pipeline.BackpressureEnabled,
		RejectThreshold:     deps.Pipeline.RejectThreshold,
		WaitTimeout:         deps.Pipeline.WaitTimeout,
		Retry: pipeline.RetryPolicy{
			MaxAttempts: deps.Pipeline.MaxAttempts,
			Initial:     deps.Pipeline.RetryInitialBackoff,
			Max:         deps.Pipeline.RetryMaxBackoff,
		},
	}, logger)
	c.scheduler = scheduler
	c.RegisterSingleton("scheduler", scheduler)

	// Artifact persistence: Datastore when configured, memory otherwise
	var itemArchiver stages.ItemArchiver
	var podcastArchiver stages.PodcastArchiver
	var archiveReader handlers.ArchiveReaderInterface
	if deps.DatastoreClient != nil {
		archiver := utils.NewArtifactArchiver(deps.DatastoreClient, logger)
		itemArchiver = archiver
		podcastArchiver = archiver
		archiveReader = archiver
		c.RegisterSingleton("archiver", archiver)
	} else {
		archiver := stages.NewMemoryArchiver()
		itemArchiver = archiver
		podcastArchiver = archiver
		archiveReader = archiver
		c.RegisterSingleton("archiver", archiver)
	}

	// Stage workers
	scheduler.Register(types.KindItem, stages.NewFetchWorker(nil, deps.Pipeline.FetchRequestsPerSec, logger))
	scheduler.Register(types.KindItem, stages.NewExtractWorker(logger))
	scheduler.Register(types.KindItem, stages.NewSummarizeWorker(&stages.MockAIService{}, itemArchiver, logger))
	scheduler.Register(types.KindPodcast, stages.NewScriptWorker(&stages.MockScriptWriter{}, logger))
	scheduler.Register(types.KindPodcast, stages.NewAudioWorker(&stages.MockSpeechSynthesizer{}, podcastArchiver, logger))

	// Digest service and ID generator
	ids := utils.NewIDGenerator()
	c.RegisterSingleton("ids", ids)
	digestService := digest.NewService(store, scheduler, &digest.StaticUserDirectory{IDs: deps.DigestUserIDs}, ids, logger)
	c.RegisterSingleton("digest", digestService)

	// Register handler factory that depends on other services
	c.RegisterFactory("handler", func() (interface{}, error) {
		// A nil *cache.Manager must stay a nil interface inside the handler.
		var cacheManager handlers.CacheManagerInterface
		if deps.CacheManager != nil {
			cacheManager = deps.CacheManager
		}
		handler := handlers.NewHandler(store, scheduler, broadcaster, cacheManager, digestService, ids, logger)
		handler.Archive = archiveReader
		handler.StreamHeartbeat = deps.Stream.HeartbeatInterval
		return handler, nil
	})

	return nil
}

// PipelineProbe returns a health probe verifying the scheduler is running
// and not saturated.
func (c *Container) PipelineProbe() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		c.mu.RLock()
		scheduler := c.scheduler
		c.mu.RUnlock()
		if scheduler == nil {
			return fmt.Errorf("scheduler not initialized")
		}
		if load := scheduler.QueueLoad(); load >= 1.0 {
			return fmt.Errorf("scheduler queue saturated (load %.2f)", load)
		}
		return nil
	}
}

// DatastoreProbe returns a health probe for Datastore connectivity, or nil
// when running without Datastore.
func (c *Container) DatastoreProbe() func(ctx context.Context) error {
	c.mu.RLock()
	client := c.datastoreClient
	c.mu.RUnlock()
	if client == nil {
		return nil
	}
	return func(ctx context.Context) error {
		query := datastore.NewQuery("__Namespace").KeysOnly().Limit(1)
		_, err := client.GetAll(ctx, query, nil)
		return err
	}
}

// Close gracefully closes all service connections
func (c *Container) Close() error {
	c.mu.Lock()
	scheduler := c.scheduler
	client := c.datastoreClient
	c.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
	if client != nil {
		if err := client.Close(); err != nil {
			return fmt.Errorf("failed to close datastore client: %v", err)
		}
	}

	return nil
}
