package mcptest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dopplerkit/dopplermcp/doppler"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// Seed is the initial world for a fake Doppler server.
type Seed struct {
	Projects []SeedProject
}

// SeedProject seeds one project with its configs.
type SeedProject struct {
	Slug        string
	Name        string
	Description string
	Configs     []SeedConfig
}

// SeedConfig seeds one config with its secrets.
type SeedConfig struct {
	Name    string
	Secrets map[string]string
}

// DefaultSeed returns a small demo world: a "demo" project with dev and
// prd configs, and an empty "website" project.
func DefaultSeed() Seed {
	return Seed{
		Projects: []SeedProject{
			{
				Slug:        "demo",
				Name:        "Demo",
				Description: "Demo project for local development",
				Configs: []SeedConfig{
					{
						Name: "dev",
						Secrets: map[string]string{
							"API_KEY":      "sk-demo-12345",
							"DATABASE_URL": "postgresql://localhost:5432/demo",
						},
					},
					{
						Name: "prd",
						Secrets: map[string]string{
							"API_KEY": "sk-prod-67890",
						},
					},
				},
			},
			{
				Slug:    "website",
				Name:    "Website",
				Configs: []SeedConfig{{Name: "dev", Secrets: map[string]string{}}},
			},
		},
	}
}

// dopplerWorld is the mutable state behind a fake Doppler server.
type dopplerWorld struct {
	mu       sync.Mutex
	projects []*fakeProject
	logs     []doppler.ActivityLog
	logSeq   int
	created  string
}

type fakeProject struct {
	slug        string
	name        string
	description string
	configs     []*fakeConfig
}

type fakeConfig struct {
	name    string
	secrets map[string]string
}

// NewDopplerServer builds a Server pre-registered with the nine Doppler
// tools, backed by an in-memory world initialized from seed. Mutating
// tools update the world and append activity log entries, so a test can
// set a secret, read it back, and see the write in the log.
func NewDopplerServer(seed Seed) *Server {
	w := &dopplerWorld{
		created: time.Now().UTC().Format(time.RFC3339),
	}
	for _, sp := range seed.Projects {
		p := &fakeProject{slug: sp.Slug, name: sp.Name, description: sp.Description}
		for _, sc := range sp.Configs {
			secrets := make(map[string]string, len(sc.Secrets))
			for k, v := range sc.Secrets {
				secrets[k] = v
			}
			p.configs = append(p.configs, &fakeConfig{name: sc.Name, secrets: secrets})
		}
		w.projects = append(w.projects, p)
	}

	srv := NewServer(Info{Name: "fake-doppler", Version: "1.0.0"})

	register := func(name, desc string, argsProto any, fn ToolFunc) {
		// Registration only fails on unschematizable prototypes, which
		// would be a bug here.
		if err := srv.Register(name, desc, argsProto, fn); err != nil {
			panic(err)
		}
	}

	register(protocol.ToolListProjects,
		"List all Doppler projects",
		doppler.ListProjectsArgs{}, w.listProjects)
	register(protocol.ToolListConfigs,
		"List the configs (environments) of a project",
		doppler.ListConfigsArgs{}, w.listConfigs)
	register(protocol.ToolListSecrets,
		"List all secrets in a config with their values",
		doppler.ListSecretsArgs{}, w.listSecrets)
	register(protocol.ToolListSecretNames,
		"List secret names in a config without values",
		doppler.ListSecretsArgs{}, w.listSecretNames)
	register(protocol.ToolGetSecret,
		"Get a single secret value",
		doppler.GetSecretArgs{}, w.getSecret)
	register(protocol.ToolSetSecret,
		"Create or update a secret",
		doppler.SetSecretArgs{}, w.setSecret)
	register(protocol.ToolDeleteSecrets,
		"Delete secrets from a config",
		doppler.DeleteSecretsArgs{}, w.deleteSecrets)
	register(protocol.ToolCreateServiceToken,
		"Create a service token for a config",
		doppler.CreateServiceTokenArgs{}, w.createServiceToken)
	register(protocol.ToolGetActivityLogs,
		"Fetch recent activity log entries",
		doppler.GetActivityLogsArgs{}, w.getActivityLogs)

	return srv
}

func (w *dopplerWorld) findProject(slug string) (*fakeProject, *protocol.Error) {
	for _, p := range w.projects {
		if p.slug == slug {
			return p, nil
		}
	}
	return nil, protocol.NewError(404, "project not found: "+slug)
}

func (w *dopplerWorld) findConfig(project, config string) (*fakeConfig, *protocol.Error) {
	p, perr := w.findProject(project)
	if perr != nil {
		return nil, perr
	}
	for _, c := range p.configs {
		if c.name == config {
			return c, nil
		}
	}
	return nil, protocol.NewError(404, fmt.Sprintf("config not found: %s/%s", project, config))
}

// record appends an activity log entry. Callers hold w.mu.
func (w *dopplerWorld) record(logType, project, config, text string) {
	w.logSeq++
	w.logs = append(w.logs, doppler.ActivityLog{
		ID:        fmt.Sprintf("log_%d", w.logSeq),
		Text:      text,
		Type:      logType,
		Project:   project,
		Config:    config,
		User:      doppler.ActivityUser{Email: "fake@doppler.local", Name: "Fake User"},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (w *dopplerWorld) listProjects(ctx context.Context, args json.RawMessage) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	projects := make([]doppler.Project, 0, len(w.projects))
	for _, p := range w.projects {
		projects = append(projects, doppler.Project{
			ID:          p.slug,
			Slug:        p.slug,
			Name:        p.name,
			Description: p.description,
			CreatedAt:   w.created,
		})
	}
	return projects, nil
}

func (w *dopplerWorld) listConfigs(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.ListConfigsArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p, perr := w.findProject(in.Project)
	if perr != nil {
		return nil, perr
	}

	configs := make([]doppler.ConfigInfo, 0, len(p.configs))
	for _, c := range p.configs {
		configs = append(configs, doppler.ConfigInfo{
			Name:        c.name,
			Project:     p.slug,
			Environment: c.name,
			CreatedAt:   w.created,
		})
	}
	return configs, nil
}

func (w *dopplerWorld) listSecrets(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.ListSecretsArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	c, cerr := w.findConfig(in.Project, in.Config)
	if cerr != nil {
		return nil, cerr
	}

	secrets := make(map[string]string, len(c.secrets))
	for k, v := range c.secrets {
		secrets[k] = v
	}
	return secrets, nil
}

func (w *dopplerWorld) listSecretNames(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.ListSecretsArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	c, cerr := w.findConfig(in.Project, in.Config)
	if cerr != nil {
		return nil, cerr
	}

	names := make([]string, 0, len(c.secrets))
	for name := range c.secrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (w *dopplerWorld) getSecret(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.GetSecretArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	c, cerr := w.findConfig(in.Project, in.Config)
	if cerr != nil {
		return nil, cerr
	}

	value, ok := c.secrets[in.Name]
	if !ok {
		return nil, protocol.NewError(404, "secret not found: "+in.Name)
	}
	// Bare scalar: the value itself is the text payload.
	return value, nil
}

func (w *dopplerWorld) setSecret(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.SetSecretArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	c, cerr := w.findConfig(in.Project, in.Config)
	if cerr != nil {
		return nil, cerr
	}

	c.secrets[in.Name] = in.Value
	w.record("secrets.update", in.Project, in.Config,
		fmt.Sprintf("Set secret %s in %s/%s", in.Name, in.Project, in.Config))
	return fmt.Sprintf("Set secret %s in %s/%s", in.Name, in.Project, in.Config), nil
}

func (w *dopplerWorld) deleteSecrets(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.DeleteSecretsArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	c, cerr := w.findConfig(in.Project, in.Config)
	if cerr != nil {
		return nil, cerr
	}

	deleted := 0
	for _, name := range in.Names {
		if _, ok := c.secrets[name]; ok {
			delete(c.secrets, name)
			deleted++
		}
	}
	w.record("secrets.delete", in.Project, in.Config,
		fmt.Sprintf("Deleted %d secrets from %s/%s", deleted, in.Project, in.Config))
	return fmt.Sprintf("Deleted %d secrets from %s/%s", deleted, in.Project, in.Config), nil
}

func (w *dopplerWorld) createServiceToken(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.CreateServiceTokenArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, cerr := w.findConfig(in.Project, in.Config); cerr != nil {
		return nil, cerr
	}

	access := in.Access
	if access == "" {
		access = "read"
	}

	token := doppler.ServiceToken{
		Name:      in.Name,
		Key:       fmt.Sprintf("dp.st.%s.%s", in.Config, randomKey()),
		Access:    access,
		Project:   in.Project,
		Config:    in.Config,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	w.record("service_token.create", in.Project, in.Config,
		fmt.Sprintf("Created service token %s for %s/%s", in.Name, in.Project, in.Config))
	return token, nil
}

func (w *dopplerWorld) getActivityLogs(ctx context.Context, args json.RawMessage) (any, error) {
	var in doppler.GetActivityLogsArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	perPage := in.PerPage
	if perPage < 1 {
		perPage = 20
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Newest first.
	ordered := make([]doppler.ActivityLog, len(w.logs))
	for i, entry := range w.logs {
		ordered[len(w.logs)-1-i] = entry
	}

	start := (page - 1) * perPage
	if start >= len(ordered) {
		return []doppler.ActivityLog{}, nil
	}
	end := start + perPage
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[start:end], nil
}

func randomKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
