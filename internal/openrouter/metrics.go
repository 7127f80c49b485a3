package openrouter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики клиента генерации изображений.
//
// Позволяют отслеживать:
// - Время генерации по модели и типу задачи
// - Количество сгенерированных изображений
// - Использование токенов и стоимость

const metricsNamespace = "trendstudio"

var (
	// imageRequestDuration измеряет время запросов генерации.
	// Labels:
	//   - model: название модели
	//   - status: результат (success, error)
	//   - job_type: interactive, batch
	imageRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "image",
			Name:      "request_duration_seconds",
			Help:      "Duration of image generation requests in seconds",
			// Генерация 4K бывает дольше минуты
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"model", "status", "job_type"},
	)

	// imageRequestsTotal считает количество запросов генерации.
	imageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "image",
			Name:      "requests_total",
			Help:      "Total number of image generation requests",
		},
		[]string{"model", "status", "job_type"},
	)

	// imagesGeneratedTotal считает полученные изображения.
	imagesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "image",
			Name:      "generated_total",
			Help:      "Total number of images returned by the model",
		},
		[]string{"model"},
	)

	// llmTokensTotal считает использованные токены.
	// Labels:
	//   - model: название модели
	//   - type: тип токенов (prompt, completion)
	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total number of tokens used for LLM requests",
		},
		[]string{"model", "type"},
	)

	// llmCostTotal отслеживает кумулятивную стоимость запросов (USD).
	llmCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Total cost of LLM API requests in USD",
		},
		[]string{"model", "job_type"},
	)

	// llmRetriesTotal считает количество retry-попыток.
	llmRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Total number of retry attempts for LLM requests",
		},
		[]string{"model"},
	)
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	tokenTypePrompt = "prompt"
	tokenTypeCompl  = "completion"
)

// RecordImageRequest записывает метрики запроса генерации.
func RecordImageRequest(model string, durationSeconds float64, success bool, images, promptTokens, completionTokens int, cost *float64, jobType string) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	imageRequestDuration.WithLabelValues(model, status, jobType).Observe(durationSeconds)
	imageRequestsTotal.WithLabelValues(model, status, jobType).Inc()

	if !success {
		return
	}
	if images > 0 {
		imagesGeneratedTotal.WithLabelValues(model).Add(float64(images))
	}
	if promptTokens > 0 {
		llmTokensTotal.WithLabelValues(model, tokenTypePrompt).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		llmTokensTotal.WithLabelValues(model, tokenTypeCompl).Add(float64(completionTokens))
	}
	if cost != nil && *cost > 0 {
		llmCostTotal.WithLabelValues(model, jobType).Add(*cost)
	}
}

// RecordLLMRetry записывает retry-попытку.
func RecordLLMRetry(model string) {
	llmRetriesTotal.WithLabelValues(model).Inc()
}
