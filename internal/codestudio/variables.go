// Package codestudio describes the CI/CD variables a Code Studio project needs
// to deploy to the Cloud Platform.
package codestudio

// Variable is one CI/CD variable definition.
type Variable struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	Masked       bool   `json:"masked"`
	Protected    bool   `json:"protected"`
	VariableType string `json:"variable_type"`
}

// Inputs are the values filled into the variable table.
type Inputs struct {
	ApplicationUUID string
	APIKey          string
	APISecret       string
	TokenName       string
	TokenSecret     string
	PHPVersion      string
}

// Defaults returns the variable table filled with in.
func Defaults(in Inputs) []Variable {
	return []Variable{
		envVar("CLOUD_APPLICATION_UUID", in.ApplicationUUID, true),
		envVar("CLOUD_API_TOKEN_KEY", in.APIKey, true),
		envVar("CLOUD_API_TOKEN_SECRET", in.APISecret, true),
		envVar("GITLAB_TOKEN_NAME", in.TokenName, true),
		envVar("GITLAB_TOKEN_SECRET", in.TokenSecret, true),
		envVar("PHP_VERSION", in.PHPVersion, false),
	}
}

// Keys returns the variable names in table order.
func Keys() []string {
	vars := Defaults(Inputs{})
	keys := make([]string, len(vars))
	for i, v := range vars {
		keys[i] = v.Key
	}
	return keys
}

func envVar(key, value string, masked bool) Variable {
	return Variable{
		Key:          key,
		Value:        value,
		Masked:       masked,
		VariableType: "env_var",
	}
}

// MaskedValue returns the value for display, hiding masked secrets.
func (v Variable) MaskedValue() string {
	if !v.Masked || v.Value == "" {
		return v.Value
	}
	if len(v.Value) <= 4 {
		return "****"
	}
	return v.Value[:4] + "****"
}
