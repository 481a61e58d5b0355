package services

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"learnpath/internal/config"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

const (
	globalModelKey    = "mastery/global"
	topicModelPrefix  = "mastery/topic/"
	holdoutEveryNth   = 5
	skipReasonSamples = "not enough samples"
)

// MasteryServiceInterface defines the mastery model registry operations
type MasteryServiceInterface interface {
	TrainGlobal(ctx context.Context, vectors []models.FeatureVector) (*GlobalTrainingReport, error)
	ClassifyMastery(ctx context.Context, fv models.FeatureVector) (models.MasteryLabel, error)
	TrainPerTopic(ctx context.Context, vectors []models.FeatureVector) (*TopicTrainingReport, error)
	PredictTopicMastery(ctx context.Context, fv models.FeatureVector) (models.MasteryPrediction, error)
	TrainedTopics(ctx context.Context) ([]string, error)
}

// GlobalTrainingReport summarizes one global training run.
type GlobalTrainingReport struct {
	Samples         int     `json:"samples"`
	HoldoutSamples  int     `json:"holdout_samples"`
	HoldoutAccuracy float64 `json:"holdout_accuracy"`
}

// TopicTrainingReport lists which per-topic models were trained and which
// topics were skipped, with the reason. Skipped topics are not errors.
type TopicTrainingReport struct {
	Trained []string          `json:"trained"`
	Skipped map[string]string `json:"skipped"`
}

// globalModelArtifact is the serialized global classifier: a standardizer
// plus one centroid per mastery tier.
type globalModelArtifact struct {
	Means     []float64                         `json:"means"`
	Stds      []float64                         `json:"stds"`
	Centroids map[models.MasteryLabel][]float64 `json:"centroids"`
	Report    GlobalTrainingReport              `json:"report"`
}

// topicModelArtifact is a serialized per-topic logistic model.
type topicModelArtifact struct {
	Topic   string    `json:"topic"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Samples int       `json:"samples"`
}

// MasteryService owns the model registry: the single global three-tier
// classifier and one binary mastery model per topic. Models are serialized
// to the injected artifact store; nothing is trained implicitly at predict
// time.
type MasteryService struct {
	cfg    *config.AnalyticsConfig
	store  ArtifactStore
	logger *observability.Logger
}

// NewMasteryServiceWithLogger creates a new mastery service
func NewMasteryServiceWithLogger(cfg *config.AnalyticsConfig, store ArtifactStore, logger *observability.Logger) *MasteryService {
	return &MasteryService{cfg: cfg, store: store, logger: logger}
}

// labelFor maps mean accuracy to the three-tier mastery label.
func (s *MasteryService) labelFor(accuracy float64) models.MasteryLabel {
	switch {
	case accuracy >= s.cfg.MasteryAdvanced:
		return models.MasteryAdvanced
	case accuracy >= s.cfg.MasteryIntermediate:
		return models.MasteryIntermediate
	default:
		return models.MasteryBeginner
	}
}

// TrainGlobal fits the global mastery classifier on all feature vectors and
// persists it. Labels come from the configured accuracy bands; the model is
// nearest-centroid over standardized features, with a deterministic holdout
// split reported for monitoring.
func (s *MasteryService) TrainGlobal(ctx context.Context, vectors []models.FeatureVector) (result0 *GlobalTrainingReport, err error) {
	ctx, span := observability.TraceModelsFunction(ctx, "train_global",
		observability.AttributeRecordCount(len(vectors)),
	)
	defer observability.FinishSpan(span, &err)

	if len(vectors) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrInsufficientData, "no feature vectors to train on")
	}

	ordered := make([]models.FeatureVector, len(vectors))
	copy(ordered, vectors)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StudentID != ordered[j].StudentID {
			return ordered[i].StudentID < ordered[j].StudentID
		}
		return ordered[i].Topic < ordered[j].Topic
	})

	train, holdout := stratifiedSplit(ordered, func(fv models.FeatureVector) string {
		return string(s.labelFor(fv.AccuracyMean))
	})

	points := make([][]float64, len(train))
	for i := range train {
		points[i] = train[i].Features()
	}
	means, stds := fitStandardizer(points)

	sums := make(map[models.MasteryLabel][]float64)
	counts := make(map[models.MasteryLabel]int)
	for i, fv := range train {
		label := s.labelFor(fv.AccuracyMean)
		scaled := applyStandardizer(points[i], means, stds)
		if sums[label] == nil {
			sums[label] = make([]float64, len(scaled))
		}
		for d, v := range scaled {
			sums[label][d] += v
		}
		counts[label]++
	}

	centroids := make(map[models.MasteryLabel][]float64, len(sums))
	for label, sum := range sums {
		centroid := make([]float64, len(sum))
		for d := range sum {
			centroid[d] = sum[d] / float64(counts[label])
		}
		centroids[label] = centroid
	}

	artifact := globalModelArtifact{Means: means, Stds: stds, Centroids: centroids}

	report := GlobalTrainingReport{Samples: len(train), HoldoutSamples: len(holdout)}
	if len(holdout) > 0 {
		correct := 0
		for _, fv := range holdout {
			if artifact.classify(fv.Features()) == s.labelFor(fv.AccuracyMean) {
				correct++
			}
		}
		report.HoldoutAccuracy = float64(correct) / float64(len(holdout))
	}
	artifact.Report = report

	data, err := json.Marshal(artifact)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to serialize global model: %w", err)
	}
	if err = s.store.Put(ctx, globalModelKey, data); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Trained global mastery model", map[string]interface{}{
		"samples":          report.Samples,
		"holdout_samples":  report.HoldoutSamples,
		"holdout_accuracy": report.HoldoutAccuracy,
	})
	span.SetAttributes(attribute.Float64("train.holdout_accuracy", report.HoldoutAccuracy))

	return &report, nil
}

// ClassifyMastery assigns a three-tier mastery label using the persisted
// global model. Returns a model-unavailable error when no model has been
// trained yet.
func (s *MasteryService) ClassifyMastery(ctx context.Context, fv models.FeatureVector) (result0 models.MasteryLabel, err error) {
	ctx, span := observability.TraceModelsFunction(ctx, "classify_mastery",
		observability.AttributeStudentID(fv.StudentID),
		observability.AttributeTopic(fv.Topic),
	)
	defer observability.FinishSpan(span, &err)

	artifact, err := s.loadGlobal(ctx)
	if err != nil {
		return "", err
	}

	label := artifact.classify(fv.Features())
	span.SetAttributes(attribute.String("mastery.label", string(label)))
	return label, nil
}

// classify returns the label of the nearest centroid in standardized space.
// Ties resolve in fixed label order so results never depend on map iteration.
func (a *globalModelArtifact) classify(features []float64) models.MasteryLabel {
	scaled := applyStandardizer(features, a.Means, a.Stds)
	order := []models.MasteryLabel{models.MasteryBeginner, models.MasteryIntermediate, models.MasteryAdvanced}

	best := models.MasteryBeginner
	bestDist := math.Inf(1)
	for _, label := range order {
		centroid, ok := a.Centroids[label]
		if !ok {
			continue
		}
		if d := squaredDistance(scaled, centroid); d < bestDist {
			bestDist = d
			best = label
		}
	}
	return best
}

// TrainPerTopic fits one binary mastery model per topic and persists each.
// Topics with fewer than cfg.MinTopicSamples vectors are skipped and recorded
// in the report rather than failing the run. A single-class topic still
// trains: the model converges to an extreme probability for every input,
// which is the correct answer for that topic's data.
func (s *MasteryService) TrainPerTopic(ctx context.Context, vectors []models.FeatureVector) (result0 *TopicTrainingReport, err error) {
	ctx, span := observability.TraceModelsFunction(ctx, "train_per_topic",
		observability.AttributeRecordCount(len(vectors)),
	)
	defer observability.FinishSpan(span, &err)

	byTopic := make(map[string][]models.FeatureVector)
	for _, fv := range vectors {
		byTopic[fv.Topic] = append(byTopic[fv.Topic], fv)
	}

	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	report := &TopicTrainingReport{Skipped: make(map[string]string)}
	for _, topic := range topics {
		group := byTopic[topic]
		if len(group) < s.cfg.MinTopicSamples {
			report.Skipped[topic] = skipReasonSamples
			continue
		}

		sort.SliceStable(group, func(i, j int) bool { return group[i].StudentID < group[j].StudentID })
		points := make([][]float64, len(group))
		labels := make([]float64, len(group))
		for i, fv := range group {
			points[i] = fv.Features()
			if fv.AccuracyMean >= s.cfg.MasteredThreshold {
				labels[i] = 1
			}
		}

		means, stds := fitStandardizer(points)
		scaled := make([][]float64, len(points))
		for i := range points {
			scaled[i] = applyStandardizer(points[i], means, stds)
		}
		weights, bias := trainLogistic(scaled, labels)

		artifact := topicModelArtifact{
			Topic:   topic,
			Means:   means,
			Stds:    stds,
			Weights: weights,
			Bias:    bias,
			Samples: len(group),
		}
		data, merr := json.Marshal(artifact)
		if merr != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to serialize model for topic %s: %w", topic, merr)
		}
		if err = s.store.Put(ctx, topicModelPrefix+topic, data); err != nil {
			return nil, err
		}
		report.Trained = append(report.Trained, topic)
	}

	s.logger.Info(ctx, "Trained per-topic mastery models", map[string]interface{}{
		"trained": len(report.Trained),
		"skipped": len(report.Skipped),
	})
	span.SetAttributes(
		attribute.Int("train.topics_trained", len(report.Trained)),
		attribute.Int("train.topics_skipped", len(report.Skipped)),
	)

	return report, nil
}

// PredictTopicMastery returns the mastery probability for the vector's topic
// using that topic's persisted model. A topic that was never trained, or was
// skipped during training, yields a model-unavailable error.
func (s *MasteryService) PredictTopicMastery(ctx context.Context, fv models.FeatureVector) (result0 models.MasteryPrediction, err error) {
	ctx, span := observability.TraceModelsFunction(ctx, "predict_topic_mastery",
		observability.AttributeStudentID(fv.StudentID),
		observability.AttributeTopic(fv.Topic),
	)
	defer observability.FinishSpan(span, &err)

	data, err := s.store.Get(ctx, topicModelPrefix+fv.Topic)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return models.MasteryPrediction{}, contextutils.WrapErrorf(contextutils.ErrModelUnavailable, "no mastery model for topic %q", fv.Topic)
		}
		return models.MasteryPrediction{}, err
	}

	var artifact topicModelArtifact
	if err = json.Unmarshal(data, &artifact); err != nil {
		return models.MasteryPrediction{}, contextutils.WrapErrorf(contextutils.ErrInternalError, "corrupt model artifact for topic %s: %w", fv.Topic, err)
	}

	scaled := applyStandardizer(fv.Features(), artifact.Means, artifact.Stds)
	p := sigmoid(dot(artifact.Weights, scaled) + artifact.Bias)
	span.SetAttributes(attribute.Float64("mastery.probability", p))

	return models.MasteryPrediction{StudentID: fv.StudentID, Topic: fv.Topic, Probability: p}, nil
}

// TrainedTopics lists the topics that currently have a persisted model.
func (s *MasteryService) TrainedTopics(ctx context.Context) (result0 []string, err error) {
	ctx, span := observability.TraceModelsFunction(ctx, "trained_topics")
	defer observability.FinishSpan(span, &err)

	keys, err := s.store.Keys(ctx, topicModelPrefix)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(keys))
	for _, k := range keys {
		topics = append(topics, k[len(topicModelPrefix):])
	}
	return topics, nil
}

func (s *MasteryService) loadGlobal(ctx context.Context) (*globalModelArtifact, error) {
	data, err := s.store.Get(ctx, globalModelKey)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.WrapError(contextutils.ErrModelUnavailable, "global mastery model has not been trained")
		}
		return nil, err
	}
	var artifact globalModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "corrupt global model artifact: %w", err)
	}
	return &artifact, nil
}

// stratifiedSplit holds out every Nth vector within each label class. Input
// order must already be deterministic.
func stratifiedSplit(vectors []models.FeatureVector, labelOf func(models.FeatureVector) string) (train, holdout []models.FeatureVector) {
	seen := make(map[string]int)
	for _, fv := range vectors {
		label := labelOf(fv)
		seen[label]++
		if seen[label]%holdoutEveryNth == 0 {
			holdout = append(holdout, fv)
		} else {
			train = append(train, fv)
		}
	}
	// Never hold out everything.
	if len(train) == 0 {
		return holdout, nil
	}
	return train, holdout
}

func fitStandardizer(points [][]float64) (means, stds []float64) {
	dims := len(points[0])
	means = make([]float64, dims)
	stds = make([]float64, dims)
	for d := 0; d < dims; d++ {
		col := make([]float64, len(points))
		for i := range points {
			col[i] = points[i][d]
		}
		means[d] = mean(col)
		stds[d] = populationStd(col)
	}
	return means, stds
}

func applyStandardizer(features, means, stds []float64) []float64 {
	out := make([]float64, len(features))
	for d := range features {
		if stds[d] > 0 {
			out[d] = (features[d] - means[d]) / stds[d]
		}
	}
	return out
}

// trainLogistic fits a logistic model with fixed-iteration full-batch
// gradient descent. Zero initialization and a fixed learning rate keep the
// result reproducible.
func trainLogistic(points [][]float64, labels []float64) (weights []float64, bias float64) {
	dims := len(points[0])
	weights = make([]float64, dims)

	n := float64(len(points))
	for iter := 0; iter < config.LogisticTrainingIterations; iter++ {
		gradW := make([]float64, dims)
		var gradB float64
		for i, p := range points {
			pred := sigmoid(dot(weights, p) + bias)
			diff := pred - labels[i]
			for d := range p {
				gradW[d] += diff * p[d]
			}
			gradB += diff
		}
		for d := range weights {
			weights[d] -= config.LogisticLearningRate * gradW[d] / n
		}
		bias -= config.LogisticLearningRate * gradB / n
	}

	return weights, bias
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
