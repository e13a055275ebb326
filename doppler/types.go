package doppler

// Project is one Doppler project as reported by doppler_list_projects.
type Project struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// ConfigInfo describes one config (environment) within a project.
type ConfigInfo struct {
	Name        string `json:"name"`
	Project     string `json:"project"`
	Environment string `json:"environment"`
	Locked      bool   `json:"locked"`
	CreatedAt   string `json:"created_at"`
}

// ServiceToken is the result of doppler_create_service_token. Key holds the
// token secret and is only ever returned by this one call.
type ServiceToken struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	Access    string `json:"access"`
	Project   string `json:"project"`
	Config    string `json:"config"`
	CreatedAt string `json:"created_at"`
}

// ActivityLog is one audit entry from doppler_get_activity_logs.
type ActivityLog struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Type      string       `json:"type"`
	Project   string       `json:"project,omitempty"`
	Config    string       `json:"config,omitempty"`
	User      ActivityUser `json:"user"`
	CreatedAt string       `json:"created_at"`
}

// ActivityUser identifies who performed a logged action.
type ActivityUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Argument structs for each tool. The json tags define the wire shape of
// the tools/call arguments object; the jsonschema tags let a server (see
// package mcptest) advertise and validate the same shapes.

// ListProjectsArgs carries no fields; doppler_list_projects takes an empty
// arguments object.
type ListProjectsArgs struct{}

// ListConfigsArgs selects the project whose configs to list.
type ListConfigsArgs struct {
	Project string `json:"project" jsonschema:"required,description=Project slug"`
}

// ListSecretsArgs scopes a secret listing to one project config. It is
// shared by doppler_list_secrets (names and values) and
// doppler_list_secret_names (names only).
type ListSecretsArgs struct {
	Project string `json:"project" jsonschema:"required,description=Project slug"`
	Config  string `json:"config" jsonschema:"required,description=Config name such as dev or prd"`
}

// GetSecretArgs identifies a single secret.
type GetSecretArgs struct {
	Project string `json:"project" jsonschema:"required,description=Project slug"`
	Config  string `json:"config" jsonschema:"required,description=Config name such as dev or prd"`
	Name    string `json:"name" jsonschema:"required,description=Secret name"`
}

// SetSecretArgs writes a single secret value.
type SetSecretArgs struct {
	Project string `json:"project" jsonschema:"required,description=Project slug"`
	Config  string `json:"config" jsonschema:"required,description=Config name such as dev or prd"`
	Name    string `json:"name" jsonschema:"required,description=Secret name"`
	Value   string `json:"value" jsonschema:"required,description=Secret value"`
}

// DeleteSecretsArgs removes one or more secrets from a config.
type DeleteSecretsArgs struct {
	Project string   `json:"project" jsonschema:"required,description=Project slug"`
	Config  string   `json:"config" jsonschema:"required,description=Config name such as dev or prd"`
	Names   []string `json:"names" jsonschema:"required,description=Secret names to delete"`
}

// CreateServiceTokenArgs mints a service token scoped to one config.
type CreateServiceTokenArgs struct {
	Project string `json:"project" jsonschema:"required,description=Project slug"`
	Config  string `json:"config" jsonschema:"required,description=Config name such as dev or prd"`
	Name    string `json:"name" jsonschema:"required,description=Display name for the token"`
	Access  string `json:"access,omitempty" jsonschema:"description=Token access level,enum=read|read/write,default=read"`
}

// GetActivityLogsArgs pages through the workplace activity log.
type GetActivityLogsArgs struct {
	Page    int `json:"page,omitempty" jsonschema:"description=Page number,minimum=1,default=1"`
	PerPage int `json:"per_page,omitempty" jsonschema:"description=Entries per page,minimum=1,maximum=100,default=20"`
}
