package util

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"
)

const (
	INITIAL_EXISTING    = "existing"
	INITIAL_BISECTION   = "bisection"
	INITIAL_GREEDY      = "greedy"
	INITIAL_OVERLAP     = "overlap"
	INITIAL_CONTAINMENT = "containment"

	OBJECTIVE_CROSSOVER = "crossover"
	OBJECTIVE_BALANCE   = "balance"
)

// RunConfig. parameters of one districting search run
type RunConfig struct {
	GraphPath           string `mapstructure:"graph_path" validate:"required"`
	NDistricts          int    `mapstructure:"n_districts" validate:"required,gte=2"`
	InitialMethod       string `mapstructure:"initial_method" validate:"required,oneof=existing bisection greedy overlap containment"`
	AssignmentAttribute string `mapstructure:"assignment_attribute" validate:"required_if=InitialMethod existing"`
	// UnitsGeoJSON / RegionsGeoJSON. tract polygons and the regions they are assigned to, for the
	// overlap and containment methods.
	UnitsGeoJSON   string `mapstructure:"units_geojson" validate:"required_if=InitialMethod overlap,required_if=InitialMethod containment"`
	RegionsGeoJSON string `mapstructure:"regions_geojson" validate:"required_if=InitialMethod overlap,required_if=InitialMethod containment"`
	UnitIDProperty string `mapstructure:"unit_id_property"`
	Objective      string `mapstructure:"objective" validate:"oneof=crossover balance"`

	MaxDepth            int     `mapstructure:"max_depth" validate:"gte=-1"`
	GoalFraction        float64 `mapstructure:"goal_fraction" validate:"gt=0,lte=1"`
	MinorityClassCutoff float64 `mapstructure:"minority_class_cutoff"`
	CrossoverPercent    float64 `mapstructure:"crossover_percent" validate:"gte=0,lte=1"`
	SynthesizeVotes     bool    `mapstructure:"synthesize_votes"`
	MinSeedDistance     int     `mapstructure:"min_seed_distance" validate:"gte=0"`

	PopulationAttribute    string  `mapstructure:"population_attribute" validate:"required"`
	MinorityVotesAttribute string  `mapstructure:"minority_votes_attribute" validate:"required"`
	MajorityVotesAttribute string  `mapstructure:"majority_votes_attribute" validate:"required,nefield=MinorityVotesAttribute"`
	ClassAttribute         string  `mapstructure:"class_attribute" validate:"required"`
	PopulationTolerance    float64 `mapstructure:"population_tolerance" validate:"gte=0"`
	CutEdgeFactor          float64 `mapstructure:"cut_edge_factor" validate:"gte=0"`
	EnforceContiguity      bool    `mapstructure:"enforce_contiguity"`
	RepairIslands          bool    `mapstructure:"repair_islands"`
	Workers                int     `mapstructure:"workers" validate:"gte=1"`
	ProgressInterval       int     `mapstructure:"progress_interval" validate:"gte=1"`
	CacheDir               string  `mapstructure:"cache_dir"`
	OutputPath             string  `mapstructure:"output_path" validate:"required"`
	SummaryPath            string  `mapstructure:"summary_path"`
}

func setRunConfigDefaults(v *viper.Viper) {
	v.SetDefault("n_districts", 25)
	v.SetDefault("initial_method", INITIAL_EXISTING)
	v.SetDefault("assignment_attribute", "district")
	v.SetDefault("unit_id_property", "GEOID")
	v.SetDefault("objective", OBJECTIVE_CROSSOVER)
	v.SetDefault("max_depth", -1)
	v.SetDefault("goal_fraction", 0.9)
	v.SetDefault("minority_class_cutoff", 3)
	v.SetDefault("crossover_percent", 0.2)
	v.SetDefault("synthesize_votes", false)
	v.SetDefault("min_seed_distance", 10)
	v.SetDefault("population_attribute", "population")
	v.SetDefault("minority_votes_attribute", "minority_votes")
	v.SetDefault("majority_votes_attribute", "majority_votes")
	v.SetDefault("class_attribute", "EJ_Class")
	v.SetDefault("population_tolerance", 0.25)
	v.SetDefault("cut_edge_factor", 2.0)
	v.SetDefault("enforce_contiguity", false)
	v.SetDefault("repair_islands", true)
	v.SetDefault("workers", 4)
	v.SetDefault("progress_interval", 100)
	v.SetDefault("cache_dir", "./data/cache")
	v.SetDefault("output_path", "./data/partition.bz2")
}

// LoadRunConfig reads the run configuration from v (config file already read, or none at all), applies
// defaults and DISTRICTX_* environment overrides, and validates the result.
func LoadRunConfig(v *viper.Viper) (*RunConfig, error) {
	setRunConfigDefaults(v)
	v.SetEnvPrefix("DISTRICTX")
	v.AutomaticEnv()

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, WrapErrorf(err, ErrBadParamInput, "decode run config")
	}
	if err := ValidateStruct(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateStruct validates s with its `validate` tags and returns the english validation messages
// as one ErrBadParamInput error.
func ValidateStruct(s interface{}) error {
	validate := validator.New()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return WrapErrorf(err, ErrBadParamInput, "validation error")
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return WrapErrorf(nil, ErrBadParamInput, "validation error: %s", strings.Join(msgs, "; "))
}
