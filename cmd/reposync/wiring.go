package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	adapters "github.com/ochairo/reposync/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/reposync/internal/domain-orchestrators"
	"github.com/ochairo/reposync/internal/domain/entities"
	"github.com/ochairo/reposync/internal/domain/interfaces"
	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
	"github.com/ochairo/reposync/internal/domain/services"
	"github.com/ochairo/reposync/internal/external-adapters/gpg"
	zlog "github.com/ochairo/reposync/internal/external-adapters/zerolog"
)

func newLogger(cfg *entities.SyncConfig, w io.Writer) (interfaces.Logger, error) {
	logger, err := zlog.New(w, zlog.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return logger, nil
}

// newSigner selects the signing backend. Dry runs never touch key material.
func newSigner(cfg *entities.SyncConfig, runner gateways.CommandRunner, logger interfaces.Logger) (gateways.Signer, error) {
	if cfg.DryRun {
		return adapters.NewDryRunSigner(logger), nil
	}

	switch cfg.Signing.Backend {
	case "gpg":
		return adapters.NewGPGBinarySigner(runner, cfg.Signing.GPGBinary, cfg.Signing.KeyID), nil
	default:
		var passphrase []byte
		if cfg.Signing.PassphraseEnv != "" {
			passphrase = []byte(os.Getenv(cfg.Signing.PassphraseEnv))
		}
		signer, err := gpg.NewSignerFromFile(cfg.Signing.KeyFile, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		logger.Info("loaded signing key", interfaces.F("fingerprint", signer.Fingerprint()))
		return signer, nil
	}
}

// newPublishers creates one publisher per packaging-format bucket
func newPublishers(
	cfg *entities.SyncConfig,
	buckets []entities.BucketSpec,
	store *adapters.ArtifactStore,
	runner gateways.CommandRunner,
	signer gateways.Signer,
	logger interfaces.Logger,
) map[entities.Bucket]orchestrators.Publisher {
	publishers := make(map[entities.Bucket]orchestrators.Publisher)
	for _, spec := range buckets {
		switch spec.Format {
		case entities.FormatDeb:
			publishers[spec.Name] = adapters.NewAptPublisher(
				runner, cfg.Debian.Reprepro, store.BucketDir(spec.Name), cfg.Debian.Codename)
		case entities.FormatRPM:
			publishers[spec.Name] = adapters.NewYumPublisher(runner, store, signer, adapters.YumPublisherConfig{
				BaseDir:     store.BucketDir(spec.Name),
				PackagesDir: cfg.RPM.PackagesDir,
				PackageGlob: cfg.RPM.PackageGlob,
				RPM:         cfg.RPM.RPM,
				Createrepo:  cfg.RPM.Createrepo,
				DryRun:      cfg.DryRun,
			}, logger.With(interfaces.F("bucket", spec.Name)))
		}
	}
	return publishers
}

// newSyncOrchestrator wires every collaborator of a sync run from cfg
func newSyncOrchestrator(
	cfg *entities.SyncConfig,
	metrics interfaces.MetricsRecorder,
	logger interfaces.Logger,
) (*orchestrators.SyncOrchestrator, error) {
	classifier, err := services.NewClassifier(cfg.Rules)
	if err != nil {
		return nil, usageError(err)
	}
	buckets := classifier.Buckets()

	store := adapters.NewArtifactStore(cfg.Root, buckets, cfg.RPM.PackagesDir)
	runner := adapters.NewExecRunner(adapters.ExecRunnerConfig{DryRun: cfg.DryRun}, logger)

	var client *http.Client
	if cfg.Feed.Retries > 0 {
		client = adapters.NewRetryingHTTPClient(cfg.Feed.Retries, cfg.Feed.Timeout, logger)
	}
	var token string
	if cfg.Feed.TokenEnv != "" {
		token = os.Getenv(cfg.Feed.TokenEnv)
	}
	feed := adapters.NewHTTPReleaseFetcher(adapters.ReleaseFetcherConfig{
		Endpoint:  cfg.Feed.URL,
		Token:     token,
		UserAgent: cfg.Feed.UserAgent,
		Timeout:   cfg.Feed.Timeout,
		Client:    client,
	}, logger)

	signer, err := newSigner(cfg, runner, logger)
	if err != nil {
		return nil, err
	}

	return orchestrators.NewSyncOrchestrator(classifier, store, feed, signer, orchestrators.SyncOrchestratorConfig{
		Publishers:     newPublishers(cfg, buckets, store, runner, signer, logger),
		Checksums:      adapters.NewChecksumVerifier(),
		ChecksumsAsset: cfg.Feed.ChecksumsAsset,
		Metrics:        metrics,
		Logger:         logger,
	}), nil
}
