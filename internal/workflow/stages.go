package workflow

// Stage names one step of the analysis pipeline.
type Stage string

const (
	StageCollection     Stage = "COLLECTION"
	StagePreprocessing  Stage = "PREPROCESSING"
	StageNLPEngine      Stage = "NLP_ENGINE"
	StageClassification Stage = "CLASSIFICATION"
	StageSentiment      Stage = "SENTIMENT"
)

// PipelineStages returns the fixed stage order of one analysis run.
func PipelineStages() []Stage {
	return []Stage{
		StageCollection,
		StagePreprocessing,
		StageNLPEngine,
		StageClassification,
		StageSentiment,
	}
}

// StageObserver receives each stage as the pipeline enters it. Observers let
// callers surface progress without depending on wall-clock timing.
type StageObserver func(recordID string, stage Stage)
