package keychain

import (
	"context"
	"crypto/x509"
	stderrors "errors"
	"io"
	"net"
	"os"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// errUnsupportedKey means the key file can't be decrypted in process and
// another strategy should try.
var errUnsupportedKey = stderrors.New("key format not supported in process")

// ConnectAgent dials the agent named by SSH_AUTH_SOCK. It returns a nil agent
// and closer when the variable is unset or the socket is unreachable.
func ConnectAgent() (agent.Agent, io.Closer) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil
	}
	return agent.NewClient(conn), conn
}

// agentStrategy talks the agent protocol directly.
type agentStrategy struct {
	agent agent.Agent
}

func (s *agentStrategy) name() string { return MethodAgent }

func (s *agentStrategy) loaded(_ context.Context) ([]string, error) {
	keys, err := s.agent.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, sshkey.Normalize(string(ssh.MarshalAuthorizedKey(k))))
	}
	return out, nil
}

func (s *agentStrategy) add(_ context.Context, privatePath, password string) error {
	pem, err := os.ReadFile(privatePath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to read private key: "+privatePath,
			"Check that the file exists and is readable")
	}

	key, err := ssh.ParseRawPrivateKeyWithPassphrase(pem, []byte(password))
	if err != nil {
		if stderrors.Is(err, x509.IncorrectPasswordError) {
			return errors.NewToolExecution("ssh-agent", "incorrect passphrase for "+privatePath, err)
		}
		return errUnsupportedKey
	}

	if err := s.agent.Add(agent.AddedKey{PrivateKey: key, Comment: privatePath}); err != nil {
		return errors.NewToolExecution("ssh-agent", err.Error(), err)
	}
	return nil
}
