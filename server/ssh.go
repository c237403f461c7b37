package server

import (
	"bufio"
	"fmt"
	"net"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/terminal"
)

type SSHConfig struct {
	Address         string
	HostKeysBytes   [][]byte
	AuthorizedBytes []byte
	CheckPassword   func(user, password string) error
}

const sshPrompt = "SQL> "

// serverConfig returns the ssh configuration for sshCfg. Clients authenticate with a password,
// if CheckPassword is set, or with one of the authorized keys; with neither, any client may
// connect.
func (sshCfg SSHConfig) serverConfig() (*ssh.ServerConfig, error) {
	cfg := &ssh.ServerConfig{
		AuthLogCallback: func(md ssh.ConnMetadata, method string, err error) {
			if method == "none" {
				return
			}
			entry := log.WithFields(log.Fields{
				"user":   md.User(),
				"addr":   md.RemoteAddr().String(),
				"method": method,
			})
			if err != nil {
				entry.WithError(err).Warn("ssh: authentication failed")
			} else {
				entry.Info("ssh: authenticated")
			}
		},
	}

	for _, b := range sshCfg.HostKeysBytes {
		key, err := ssh.ParsePrivateKey(b)
		if err != nil {
			return nil, fmt.Errorf("ssh: host key: %s", err)
		}
		cfg.AddHostKey(key)
	}

	authorized := map[string]struct{}{}
	for rest := sshCfg.AuthorizedBytes; len(rest) > 0; {
		key, _, _, r, err := ssh.ParseAuthorizedKey(rest)
		if err != nil {
			return nil, fmt.Errorf("ssh: authorized keys: %s", err)
		}
		authorized[string(key.Marshal())] = struct{}{}
		rest = r
	}

	if checkPassword := sshCfg.CheckPassword; checkPassword != nil {
		cfg.PasswordCallback =
			func(md ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
				return nil, checkPassword(md.User(), string(pass))
			}
	}
	if len(authorized) > 0 {
		cfg.PublicKeyCallback =
			func(md ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
				if _, ok := authorized[string(key.Marshal())]; !ok {
					return nil, fmt.Errorf("unknown public key for %s", md.User())
				}
				return nil, nil
			}
	}
	if cfg.PasswordCallback == nil && cfg.PublicKeyCallback == nil {
		cfg.NoClientAuth = true
		log.Warn("ssh: no client authentication")
	}
	return cfg, nil
}

func (svr *Server) ListenAndServeSSH(sshCfg SSHConfig) error {
	l, err := net.Listen("tcp", sshCfg.Address)
	if err != nil {
		return err
	}
	return svr.ServeSSH(l, sshCfg)
}

// ServeSSH accepts ssh connections on l; each session channel runs a console session.
func (svr *Server) ServeSSH(l net.Listener, sshCfg SSHConfig) error {
	cfg, err := sshCfg.serverConfig()
	if err != nil {
		l.Close()
		return err
	}

	if !svr.addListener(l) {
		l.Close()
		return ErrServerClosed
	}

	for {
		conn, err := l.Accept()
		if err != nil {
			if svr.isShutdown() {
				err = ErrServerClosed
			}
			log.WithField("error", err.Error()).Error("ssh accept")
			return err
		}

		go svr.handleSSHConn(conn, cfg)
	}
}

func (svr *Server) handleSSHConn(conn net.Conn, cfg *ssh.ServerConfig) {
	atomic.AddInt32(&svr.connCount, 1)
	defer atomic.AddInt32(&svr.connCount, -1)

	if !svr.trackConn(conn, true) {
		conn.Close()
		return
	}
	defer func() {
		if svr.trackConn(conn, false) {
			conn.Close()
		}
	}()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		log.WithFields(log.Fields{
			"addr":  conn.RemoteAddr().String(),
			"error": err.Error(),
		}).Error("ssh handshake")
		return
	}
	entry := log.WithFields(log.Fields{
		"user": sconn.User(),
		"addr": sconn.RemoteAddr().String(),
	})
	entry.Info("ssh connected")
	defer entry.Info("ssh disconnected")

	go ssh.DiscardRequests(reqs)
	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, nch.ChannelType())
			entry.WithField("channel-type", nch.ChannelType()).Warn("ssh: channel rejected")
			continue
		}
		go svr.handleSSHSession(sconn, nch, entry)
	}
}

// termReader feeds the lines read from a terminal to the console a rune at a time.
type termReader struct {
	term *terminal.Terminal
	buf  []byte
}

func (tr *termReader) Read(p []byte) (int, error) {
	if len(tr.buf) == 0 {
		line, err := tr.term.ReadLine()
		if err != nil {
			return 0, err
		}
		tr.buf = []byte(line + "\n")
	}
	n := copy(p, tr.buf)
	tr.buf = tr.buf[n:]
	return n, nil
}

func (svr *Server) handleSSHSession(sconn *ssh.ServerConn, nch ssh.NewChannel,
	entry *log.Entry) {

	ch, reqs, err := nch.Accept()
	if err != nil {
		entry.WithError(err).Error("ssh: session accept")
		return
	}
	defer ch.Close()

	// pty-req, shell and env all succeed; the console is the only program.
	go func() {
		for req := range reqs {
			entry.WithField("request-type", req.Type).Debug("ssh: session request")
			if req.WantReply {
				req.Reply(true, nil)
			}
		}
	}()

	term := terminal.NewTerminal(ch, sshPrompt)
	svr.Handle(bufio.NewReader(&termReader{term: term}), term, sconn.User(), "ssh",
		sconn.RemoteAddr().String())
}
