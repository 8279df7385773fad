package config

import (
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// PersonaProfile describes how a persona presents itself in the
// discussion. Loaded from an optional YAML file; env defaults apply
// when no file is configured.
type PersonaProfile struct {
	Name        string   `yaml:"name"`
	Personality []string `yaml:"personality"`
}

// PersonaProfiles holds the profiles for all four roles.
type PersonaProfiles struct {
	PersonaA  PersonaProfile `yaml:"persona_a"`
	PersonaB  PersonaProfile `yaml:"persona_b"`
	Judge     PersonaProfile `yaml:"judge"`
	Synthesis PersonaProfile `yaml:"synthesis"`
}

func (p *PersonaProfile) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name,
			validation.Required,
			validation.Length(1, 64),
		),
		validation.Field(&p.Personality,
			validation.Length(0, 8),
			validation.Each(validation.Length(1, 64)),
		),
	)
}

func (p *PersonaProfiles) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PersonaA),
		validation.Field(&p.PersonaB),
		validation.Field(&p.Judge),
		validation.Field(&p.Synthesis),
	)
}

// DefaultProfiles derives profiles from the env-level persona config.
// PREFIX_PERSONALITY env vars (comma-separated traits) override the
// built-in trait lists.
func DefaultProfiles(cfg *Config) PersonaProfiles {
	return PersonaProfiles{
		PersonaA: PersonaProfile{
			Name:        cfg.PersonaA.Name,
			Personality: personalityFromEnv("PERSONA_A_PERSONALITY", []string{"analytical", "constructive", "evidence-driven"}),
		},
		PersonaB: PersonaProfile{
			Name:        cfg.PersonaB.Name,
			Personality: personalityFromEnv("PERSONA_B_PERSONALITY", []string{"skeptical", "thorough", "detail-oriented"}),
		},
		Judge: PersonaProfile{
			Name:        cfg.Judge.Name,
			Personality: personalityFromEnv("JUDGE_PERSONALITY", []string{"impartial", "strict"}),
		},
		Synthesis: PersonaProfile{
			Name:        cfg.Synthesis.Name,
			Personality: personalityFromEnv("SYNTHESIS_PERSONALITY", []string{"objective", "balanced", "comprehensive"}),
		},
	}
}

func personalityFromEnv(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaults
	}
	var traits []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			traits = append(traits, t)
		}
	}
	if len(traits) == 0 {
		return defaults
	}
	return traits
}

// LoadProfiles returns the profiles from cfg.PersonasFile when set,
// falling back to DefaultProfiles otherwise. A file entry with an empty
// name inherits the default for that role.
func LoadProfiles(cfg *Config) (PersonaProfiles, error) {
	profiles := DefaultProfiles(cfg)
	if cfg.PersonasFile == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(cfg.PersonasFile)
	if err != nil {
		return profiles, fmt.Errorf("read personas file: %w", err)
	}

	var fromFile PersonaProfiles
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return profiles, fmt.Errorf("parse personas file: %w", err)
	}

	mergeProfile(&profiles.PersonaA, fromFile.PersonaA)
	mergeProfile(&profiles.PersonaB, fromFile.PersonaB)
	mergeProfile(&profiles.Judge, fromFile.Judge)
	mergeProfile(&profiles.Synthesis, fromFile.Synthesis)

	if err := profiles.Validate(); err != nil {
		return profiles, fmt.Errorf("validate personas file: %w", err)
	}
	return profiles, nil
}

func mergeProfile(dst *PersonaProfile, src PersonaProfile) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if len(src.Personality) > 0 {
		dst.Personality = src.Personality
	}
}
