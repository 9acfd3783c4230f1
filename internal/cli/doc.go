// Package cli implements the cloudctl command-line interface.
//
// Each command is a cobra.Command whose RunE builds a Runtime and hands it to
// a plain function (sshKeyUploadCommand, envListCommand, ...). The Runtime
// carries the loaded config, the I/O streams and every external dependency:
// the platform API, the local tool runner, the SSH agent and dialer, the
// prompter and the clock. Tests build a Runtime with fakes and call the
// functions directly.
//
// # Command Structure
//
// Commands are namespaced with a colon:
//
//	cloudctl auth:login             - Store API credentials
//	cloudctl ssh-key:create         - Generate a key and load it into the agent
//	cloudctl ssh-key:upload         - Upload a key and wait until it works
//	cloudctl ssh-key:create-upload  - Both of the above
//	cloudctl ssh-key:list|delete    - Manage account keys
//	cloudctl app:link               - Link this directory to an application
//	cloudctl env:list               - List an application's environments
//	cloudctl remote:ssh <env> -- …  - Run a command on an environment
//	cloudctl app:log:tail <env>     - Stream environment logs
//	cloudctl codestudio:variables   - Print Code Studio CI/CD variables
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-interaction, --application) live on
// the root command. The root pre-run hook loads and validates config, sets the
// log level and picks the color profile before any command runs.
package cli
