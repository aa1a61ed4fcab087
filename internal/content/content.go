// Package content holds the portfolio's static tables. They are baked into
// the binary, parsed once and rendered verbatim.
package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var portfolioYAML []byte

type Profile struct {
	Name         string `yaml:"name"`
	Initials     string `yaml:"initials"`
	Brand        string `yaml:"brand"`
	Title        string `yaml:"title"`
	Location     string `yaml:"location"`
	Email        string `yaml:"email"`
	Availability string `yaml:"availability"`
	Headline     string `yaml:"headline"`
	Tagline      string `yaml:"tagline"`
}

// Links are the outbound URLs. They are opaque to everything but the page.
type Links struct {
	LinkedIn     string `yaml:"linkedin"`
	GitHub       string `yaml:"github"`
	EmailCompose string `yaml:"email_compose"`
}

type Competency struct {
	Icon string `yaml:"icon"`
	Text string `yaml:"text"`
}

type Education struct {
	Degree      string `yaml:"degree"`
	Institution string `yaml:"institution"`
	Period      string `yaml:"period"`
	Focus       string `yaml:"focus"`
}

type Stat struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Experience struct {
	Company      string   `yaml:"company"`
	Role         string   `yaml:"role"`
	Period       string   `yaml:"period"`
	Location     string   `yaml:"location"`
	Type         string   `yaml:"type"`
	Achievements []string `yaml:"achievements"`
	Technologies []string `yaml:"technologies"`
}

type Project struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"` // markdown
	Impact       string   `yaml:"impact"`
	Technologies []string `yaml:"technologies"`
	Category     string   `yaml:"category"`
	Metrics      []string `yaml:"metrics"`
	GitHub       string   `yaml:"github"`

	DescriptionHTML template.HTML `yaml:"-"`
}

type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"` // percent
}

type SkillGroup struct {
	Name  string  `yaml:"name"`
	Items []Skill `yaml:"items"`
}

type Achievement struct {
	Icon        string `yaml:"icon"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"` // gradient classes
}

// Portfolio is everything the page renders besides the interactive state.
type Portfolio struct {
	Profile      Profile       `yaml:"profile"`
	Links        Links         `yaml:"links"`
	Summary      []string      `yaml:"summary"` // markdown paragraphs
	Competencies []Competency  `yaml:"competencies"`
	Education    []Education   `yaml:"education"`
	QuickStats   []Stat        `yaml:"quick_stats"`
	Experiences  []Experience  `yaml:"experiences"`
	Projects     []Project     `yaml:"projects"`
	Skills       []SkillGroup  `yaml:"skills"`
	Achievements []Achievement `yaml:"achievements"`

	SummaryHTML []template.HTML `yaml:"-"`
}

var (
	loadOnce sync.Once
	loaded   *Portfolio
	loadErr  error
)

// Default returns the embedded portfolio. The result is shared and must not
// be modified.
func Default() (*Portfolio, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(portfolioYAML)
	})
	return loaded, loadErr
}

// Parse decodes a portfolio document and renders its markdown fields.
func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing portfolio: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	r := newRenderer()
	for _, para := range p.Summary {
		h, err := r.render(para)
		if err != nil {
			return nil, fmt.Errorf("rendering summary: %w", err)
		}
		p.SummaryHTML = append(p.SummaryHTML, h)
	}
	for i := range p.Projects {
		h, err := r.render(p.Projects[i].Description)
		if err != nil {
			return nil, fmt.Errorf("rendering project %q: %w", p.Projects[i].Title, err)
		}
		p.Projects[i].DescriptionHTML = h
	}
	return &p, nil
}

func (p *Portfolio) validate() error {
	if p.Profile.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Profile.Initials == "" {
		return fmt.Errorf("profile initials are required")
	}
	for _, g := range p.Skills {
		for _, s := range g.Items {
			if s.Level < 0 || s.Level > 100 {
				return fmt.Errorf("skill %q: level %d outside 0-100", s.Name, s.Level)
			}
		}
	}
	return nil
}

type renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newRenderer() *renderer {
	return &renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		policy: bluemonday.UGCPolicy(),
	}
}

func (r *renderer) render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}
