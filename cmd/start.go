package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/klundeen/5300-Antelope/catalog"
	"github.com/klundeen/5300-Antelope/execute"
	"github.com/klundeen/5300-Antelope/repl"
	"github.com/klundeen/5300-Antelope/server"
	"github.com/klundeen/5300-Antelope/storage"
	"github.com/klundeen/5300-Antelope/storage/kv"
)

var (
	startCmd = &cobra.Command{
		Use:   "start [file ...]",
		Short: "Start the Antelope database server",
		RunE:  startRun,
	}

	store   = "bbolt"
	dataDir = "testdata"
	format  = "plain"

	proto3Host     = "localhost"
	proto3Port     = "5432"
	sshServer      = false
	sshPort        = "localhost:8241"
	authorizedKeys = ""
	hostKeys       = []string{"id_rsa"}

	sqlArgs = []string{}
)

func initServerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&store, "store", store, "storage to use: btree, bbolt, badger, or pebble")
	cfgVars["store"] = fs.Lookup("store")

	fs.StringVar(&dataDir, "data", dataDir, "`directory` containing the database")
	cfgVars["data"] = fs.Lookup("data")

	fs.StringVar(&format, "format", format, "result format: plain or table")
	cfgVars["format"] = fs.Lookup("format")

	fs.StringSliceVar(&sqlArgs, "sql", sqlArgs, "sql `statement` to execute; multiple allowed")
}

func init() {
	fs := startCmd.Flags()
	initServerFlags(fs)

	fs.StringVar(&proto3Host, "host", proto3Host,
		"`host` used to serve PostgreSQL wire protocol v3")
	cfgVars["host"] = fs.Lookup("host")

	fs.StringVarP(&proto3Port, "port", "p", proto3Port,
		"`port` used to serve PostgreSQL wire protocol v3")
	cfgVars["port"] = fs.Lookup("port")

	fs.BoolVar(&sshServer, "ssh", sshServer, "`flag` to control serving SSH")
	cfgVars["ssh"] = fs.Lookup("ssh")

	fs.StringVar(&sshPort, "ssh-port", sshPort, "`port` used to serve SSH")
	cfgVars["ssh-port"] = fs.Lookup("ssh-port")

	fs.StringVar(&authorizedKeys, "ssh-authorized-keys", authorizedKeys,
		"`file` containing authorized ssh keys")
	cfgVars["ssh-authorized-keys"] = fs.Lookup("ssh-authorized-keys")

	fs.StringSliceVar(&hostKeys, "ssh-host-key", hostKeys,
		"`file` containing a ssh host key; multiple allowed")
	cfgVars["ssh-host-keys"] = fs.Lookup("ssh-host-key")

	cfgVars["accounts"] = nil

	antelopeCmd.AddCommand(startCmd)
}

func newServer(args []string) (*server.Server, error) {
	f, err := repl.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("antelope: %s", err)
	}

	st, err := kv.Open(store, dataDir, log.StandardLogger())
	if err != nil {
		return nil, fmt.Errorf("antelope: %s", err)
	}

	tbls, err := catalog.Open(context.Background(), storage.NewStore(store, st))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("antelope: %s", err)
	}

	svr := &server.Server{
		Executor: execute.NewExecutor(tbls),
		Format:   f,
	}

	for idx, arg := range sqlArgs {
		svr.Handle(strings.NewReader(arg), os.Stdout, "startup", "sql-arg", strconv.Itoa(idx))
	}

	for idx := 0; idx < len(args); idx++ {
		r, err := os.Open(args[idx])
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("antelope: sql file: %s", err)
		}
		svr.Handle(bufio.NewReader(r), os.Stdout, "startup", "sql-file", args[idx])
		r.Close()
	}

	return svr, nil
}

func userAccounts() map[string]string {
	val := cfg["accounts"]
	if val == nil {
		return nil
	}
	var accounts []map[string]interface{}
	switch val := val.(type) {
	case []map[string]interface{}:
		accounts = val
	case []interface{}:
		for _, obj := range val {
			account, ok := obj.(map[string]interface{})
			if !ok {
				return nil
			}
			accounts = append(accounts, account)
		}
	default:
		return nil
	}

	userPasswords := map[string]string{}
	for _, account := range accounts {
		user, ok := account["user"].(string)
		if !ok {
			return nil
		}
		password, ok := account["password"].(string)
		if !ok {
			return nil
		}
		userPasswords[user] = password
	}

	return userPasswords
}

func startRun(cmd *cobra.Command, args []string) error {
	svr, err := newServer(args)
	if err != nil {
		return err
	}
	defer svr.Executor.Tables().Store().Close()

	p3Cfg := server.Proto3Config{
		Address: fmt.Sprintf("%s:%s", proto3Host, proto3Port),
	}

	go func() {
		fmt.Fprintf(os.Stderr, "antelope: %s\n", svr.ListenAndServeProto3(p3Cfg))
	}()

	if sshServer {
		userPasswords := userAccounts()

		sshCfg := server.SSHConfig{
			Address: sshPort,
		}

		for _, hostKey := range hostKeys {
			keyBytes, err := ioutil.ReadFile(hostKey)
			if err != nil {
				return fmt.Errorf("antelope: host keys: %s", err)
			}
			sshCfg.HostKeysBytes = append(sshCfg.HostKeysBytes, keyBytes)
		}

		if authorizedKeys != "" {
			sshCfg.AuthorizedBytes, err = ioutil.ReadFile(authorizedKeys)
			if err != nil {
				return fmt.Errorf("antelope: authorized keys: %s", err)
			}
		}

		if len(userPasswords) > 0 {
			sshCfg.CheckPassword = func(user, password string) error {
				pw, ok := userPasswords[user]
				if !ok {
					return fmt.Errorf("user %s not found", user)
				}
				if password != pw {
					return fmt.Errorf("bad password for user %s", user)
				}
				return nil
			}
		}

		go func() {
			fmt.Fprintf(os.Stderr, "antelope: %s\n", svr.ListenAndServeSSH(sshCfg))
		}()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)

	fmt.Println("antelope: waiting for ^C to shutdown")
	<-ch
	go func() {
		<-ch
		os.Exit(0)
	}()

	fmt.Println("antelope: shutting down")
	return svr.Shutdown(context.Background())
}
