package cmd

import (
	"fmt"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hunter/src/core/evalrun"
	"hunter/src/core/evaluation"
	"hunter/src/core/evaluation/rediscache"
	"hunter/src/infrastructure/integrations/ollama"
	"hunter/src/infrastructure/integrations/openai"
	"hunter/src/storage/elastic"
	"hunter/src/storage/postgres/casectrl"
	"hunter/src/storage/postgres/resultctrl"
	"hunter/src/storage/postgres/runctrl"
	"hunter/src/storage/weaviate"
)

const defaultOllamaJudgeModel = "qwen2.5:7b"

// buildJudge assembles the configured judge chain: backend, optional
// evidence retrieval, optional judgment cache. backend overrides
// judge.backend when non-empty.
func buildJudge(backend string) (evaluation.Judge, error) {
	if backend == "" {
		backend = viper.GetString("judge.backend")
	}

	var judge evaluation.Judge
	switch backend {
	case "lexical":
		judge = evaluation.NewLexicalJudge()

	case "ollama":
		provider, err := buildOllamaProvider()
		if err != nil {
			return nil, err
		}
		judge, err = buildLLMJudge(provider)
		if err != nil {
			return nil, err
		}

	case "openai":
		provider, err := openai.NewProvider(
			viper.GetString("openai.api_key"),
			viper.GetString("openai.base_url"),
			viper.GetString("judge.model"),
		)
		if err != nil {
			return nil, err
		}
		judge, err = buildLLMJudge(provider)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown judge backend %q (want ollama, openai or lexical)", backend)
	}

	return wrapCache(judge)
}

func buildOllamaProvider() (*ollama.Provider, error) {
	client, err := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{})
	if err != nil {
		return nil, err
	}

	model := viper.GetString("judge.model")
	if model == "" {
		model = defaultOllamaJudgeModel
	}
	return ollama.NewProvider(client, model, viper.GetString("ollama.embedding_model")), nil
}

func buildLLMJudge(provider evaluation.LLMProvider) (*evaluation.LLMJudge, error) {
	opts := []evaluation.LLMJudgeOption{
		evaluation.WithRateLimit(viper.GetFloat64("judge.rate_limit")),
	}

	retriever, err := buildRetriever()
	if err != nil {
		return nil, err
	}
	if retriever != nil {
		opts = append(opts, evaluation.WithEvidenceRetriever(retriever, viper.GetInt("evidence.top_k")))
	}

	return evaluation.NewLLMJudge(provider, opts...)
}

// buildRetriever returns nil when no evidence backend is configured.
func buildRetriever() (evaluation.EvidenceRetriever, error) {
	switch backend := viper.GetString("evidence.backend"); backend {
	case "", "none":
		return nil, nil

	case "weaviate":
		client := weaviateClient.New(weaviateClient.Config{
			Scheme: viper.GetString("weaviate.scheme"),
			Host:   viper.GetString("weaviate.host"),
		})
		embedder, err := buildOllamaProvider()
		if err != nil {
			return nil, err
		}
		return weaviate.NewIndex(client, embedder,
			viper.GetInt("evidence.chunk_size"),
			viper.GetInt("evidence.chunk_overlap")), nil

	case "elastic":
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{viper.GetString("elasticsearch.url")},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return elastic.NewIndex(client,
			viper.GetInt("evidence.chunk_size"),
			viper.GetInt("evidence.chunk_overlap")), nil

	default:
		return nil, fmt.Errorf("unknown evidence backend %q (want none, weaviate or elastic)", backend)
	}
}

func wrapCache(judge evaluation.Judge) (evaluation.Judge, error) {
	switch backend := viper.GetString("cache.backend"); backend {
	case "", "none":
		return judge, nil
	case "memory":
		return evaluation.NewCachedJudge(judge, evaluation.NewMemoryCache()), nil
	case "redis":
		ttl, err := time.ParseDuration(viper.GetString("redis.ttl"))
		if err != nil {
			return nil, fmt.Errorf("invalid redis.ttl: %w", err)
		}
		cache, err := rediscache.New(viper.GetString("redis.url"), ttl)
		if err != nil {
			return nil, err
		}
		return evaluation.NewCachedJudge(judge, cache), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want none, memory or redis)", backend)
	}
}

// buildRunner assembles the evaluator and worker pool from config.
func buildRunner(judge evaluation.Judge, progress func(done, total int)) (*evaluation.Runner, error) {
	timeout, err := time.ParseDuration(viper.GetString("judge.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid judge.timeout: %w", err)
	}
	backoff, err := time.ParseDuration(viper.GetString("judge.backoff"))
	if err != nil {
		return nil, fmt.Errorf("invalid judge.backoff: %w", err)
	}

	evaluator, err := evaluation.NewEvaluator(judge,
		evaluation.WithJudgeTimeout(timeout),
		evaluation.WithMaxRetries(viper.GetInt("judge.retries")),
		evaluation.WithRetryBackoff(backoff),
	)
	if err != nil {
		return nil, err
	}

	opts := []evaluation.RunnerOption{
		evaluation.WithConcurrency(viper.GetInt("eval.concurrency")),
	}
	if progress != nil {
		opts = append(opts, evaluation.WithProgress(progress))
	}
	return evaluation.NewRunner(evaluator, opts...)
}

// buildRunService wires the persisted run lifecycle on top of the
// configured judge.
func buildRunService(db *gorm.DB) (*evalrun.Service, error) {
	judgeBackend := viper.GetString("judge.backend")
	judge, err := buildJudge(judgeBackend)
	if err != nil {
		return nil, err
	}
	runner, err := buildRunner(judge, nil)
	if err != nil {
		return nil, err
	}

	runs, err := runctrl.NewRunService(db)
	if err != nil {
		return nil, err
	}
	cases, err := casectrl.NewCaseService(db)
	if err != nil {
		return nil, err
	}
	results, err := resultctrl.NewResultService(db)
	if err != nil {
		return nil, err
	}

	return evalrun.NewService(runs, cases, results, runner, judgeBackend)
}

func openDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
