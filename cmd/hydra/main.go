// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This binary is the main entrypoint for the hydra command line tool.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"flag"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"github.com/hydra-project/hydra/authority"
	"github.com/hydra-project/hydra/config"
	"github.com/hydra-project/hydra/sealedbox"
)

// The current version, displayed via the `version` subcommand.
const hydraVersion string = "0.1.0"

func defaultConfigPath() string {
	path, err := config.DefaultPath()
	if err != nil {
		glog.Errorf("%v", err)
		return config.DefaultConfigName
	}
	return path
}

func configFlag(f *flag.FlagSet, p *string) {
	f.StringVar(p, "config-file", defaultConfigPath(), "Path to a hydra YAML config file.")
}

// openAuthority loads the config at path and opens the authority it describes.
func openAuthority(path string) (*authority.Authority, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	backend, err := cfg.OpenBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %v", err)
	}
	return authority.Open(backend, cfg.AuthorityOptions()...)
}

// readSecret returns value if set, otherwise the first line of stdin.
func readSecret(value string, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read from stdin: %v", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// openInput opens name for reading, with "-" meaning stdin.
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// openOutput creates name for writing, with "-" meaning stdout. Status
// messages go to the returned log file.
func openOutput(name string) (out *os.File, logFile *os.File, err error) {
	if name == "-" {
		return os.Stdout, os.Stderr, nil
	}
	out, err = os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return out, os.Stdout, nil
}

func decodeKey(b64 string) (sealedbox.Key, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return sealedbox.Key{}, fmt.Errorf("key is not valid base64: %v", err)
	}
	return sealedbox.PadKeyBytes(raw)
}

// initCmd handles CLI options for the init command.
type initCmd struct {
	configFile string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "creates an authority and its field prime" }
func (*initCmd) Usage() string {
	return `Usage: hydra init [--config-file=<config_file>]

Generates the field prime and writes it to the configured store.

Flags:
`
}
func (c *initCmd) SetFlags(f *flag.FlagSet) { configFlag(f, &c.configFile) }

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	if cfg.StoreType == config.StoreTypeMemory {
		glog.Warningf("The memory store does not outlive this process")
	}
	backend, err := cfg.OpenBackend()
	if err != nil {
		glog.Errorf("Failed to open store: %v", err)
		return subcommands.ExitFailure
	}
	defer backend.Close()

	a, err := authority.New(backend, cfg.AuthorityOptions()...)
	if err != nil {
		glog.Errorf("Failed to initialize authority: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Initialized authority with a %d-bit prime\n", a.Prime().BitLen())
	return subcommands.ExitSuccess
}

// registerCmd handles CLI options for the register command.
type registerCmd struct {
	configFile string
	userID     string
	password   string
	anonymous  bool
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "issues a keypair for a user" }
func (*registerCmd) Usage() string {
	return `Usage: hydra register [--config-file=<config_file>] (--user=<id> | --anonymous) [--password=<password>]

Examples:
  Register a user, reading the password from stdin:
    $ hydra register --user=alice@example.com
    Password: ...
    Share index: 6b86b273...
    Recovery code: hydra1.....

  Register a fresh anonymous user:
    $ hydra register --anonymous --password=hunter2

Store the recovery code somewhere safe: it is the only way to recover the
key without the password.

Flags:
`
}
func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configFile)
	f.StringVar(&c.userID, "user", "", "The user ID to register.")
	f.StringVar(&c.password, "password", "", "The password. Read from stdin if empty.")
	f.BoolVar(&c.anonymous, "anonymous", false, "Create a random anonymous user ID.")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.anonymous == (c.userID != "") {
		glog.Errorf("Exactly one of --user and --anonymous is required")
		return subcommands.ExitUsageError
	}
	a, err := openAuthority(c.configFile)
	if err != nil {
		glog.Errorf("Failed to open authority: %v", err)
		return subcommands.ExitFailure
	}

	userID := c.userID
	if c.anonymous {
		if userID, err = a.CreateAnonymousUser(); err != nil {
			glog.Errorf("Failed to create anonymous user: %v", err)
			return subcommands.ExitFailure
		}
	}

	password, err := readSecret(c.password, "Password: ")
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}

	backup, index, err := a.Register(userID, password)
	if err != nil {
		glog.Errorf("Failed to register user: %v", err)
		return subcommands.ExitFailure
	}

	pub, err := a.PublicKey(userID)
	if err != nil {
		glog.Errorf("Failed to read public key: %v", err)
		return subcommands.ExitFailure
	}

	fmt.Println("User ID:", userID)
	fmt.Println("Public key:", base64.StdEncoding.EncodeToString(pub[:]))
	fmt.Println("Share index:", index)
	fmt.Println("Recovery code:", backup)
	return subcommands.ExitSuccess
}

// recoverCmd handles CLI options for the recover command.
type recoverCmd struct {
	configFile string
	userID     string
	password   string
	backup     string
}

func (*recoverCmd) Name() string     { return "recover" }
func (*recoverCmd) Synopsis() string { return "recovers a user's private key" }
func (*recoverCmd) Usage() string {
	return `Usage: hydra recover [--config-file=<config_file>] --user=<id> [--password=<password>] [--backup=<recovery_code>]

Examples:
  Recover with a password read from stdin:
    $ hydra recover --user=alice@example.com

  Recover with a recovery code:
    $ hydra recover --backup=hydra1.....

The private key is printed as base64.

Flags:
`
}
func (c *recoverCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configFile)
	f.StringVar(&c.userID, "user", "", "The user ID to recover.")
	f.StringVar(&c.password, "password", "", "The password. Read from stdin if neither this nor --backup is set.")
	f.StringVar(&c.backup, "backup", "", "A recovery code printed by register.")
}

func (c *recoverCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openAuthority(c.configFile)
	if err != nil {
		glog.Errorf("Failed to open authority: %v", err)
		return subcommands.ExitFailure
	}

	var key sealedbox.Key
	var ok bool
	if c.backup != "" {
		backup, err := authority.ParseBackupShare(c.backup)
		if err != nil {
			glog.Errorf("Invalid recovery code: %v", err)
			return subcommands.ExitFailure
		}
		key, ok = a.RecoverWithBackup(backup)
	} else {
		if c.userID == "" {
			glog.Errorf("--user is required without --backup")
			return subcommands.ExitUsageError
		}
		password, err := readSecret(c.password, "Password: ")
		if err != nil {
			glog.Errorf("%v", err)
			return subcommands.ExitFailure
		}
		key, ok = a.RecoverWithPassword(c.userID, password)
	}

	if !ok {
		glog.Errorf("Recovery failed")
		return subcommands.ExitFailure
	}
	fmt.Println(base64.StdEncoding.EncodeToString(key[:]))
	return subcommands.ExitSuccess
}

// pubkeyCmd handles CLI options for the pubkey command.
type pubkeyCmd struct {
	configFile string
	userID     string
}

func (*pubkeyCmd) Name() string     { return "pubkey" }
func (*pubkeyCmd) Synopsis() string { return "prints a user's public key" }
func (*pubkeyCmd) Usage() string {
	return `Usage: hydra pubkey [--config-file=<config_file>] --user=<id>

Flags:
`
}
func (c *pubkeyCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configFile)
	f.StringVar(&c.userID, "user", "", "The user ID to look up.")
}

func (c *pubkeyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openAuthority(c.configFile)
	if err != nil {
		glog.Errorf("Failed to open authority: %v", err)
		return subcommands.ExitFailure
	}
	pub, err := a.PublicKey(c.userID)
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Println(base64.StdEncoding.EncodeToString(pub[:]))
	return subcommands.ExitSuccess
}

// encryptCmd handles CLI options for the encryption command.
type encryptCmd struct {
	configFile string
	userID     string
	pubkey     string
	stream     bool
	quiet      bool
}

func (*encryptCmd) Name() string     { return "encrypt" }
func (*encryptCmd) Synopsis() string { return "seals plaintext to a user's public key" }
func (*encryptCmd) Usage() string {
	return `Usage: hydra encrypt (--user=<id> | --pubkey=<base64>) <plaintext_file> <sealed_file>

Examples:
  Seal a file to a registered user:
    $ hydra encrypt --user=alice@example.com plaintext.txt sealed.bin

  Seal stdin to an explicit public key, writing to stdout:
    $ my-application | hydra encrypt --pubkey=... - - > sealed.bin

  Seal a large file without holding it in memory:
    $ hydra encrypt --stream --user=alice@example.com backup.tar sealed.bin

Flags:
`
}
func (c *encryptCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configFile)
	f.StringVar(&c.userID, "user", "", "Seal to the public key registered for this user.")
	f.StringVar(&c.pubkey, "pubkey", "", "Seal to this base64 public key.")
	f.BoolVar(&c.stream, "stream", false, "Encrypt the body with a sealed data key in fixed size segments.")
	f.BoolVar(&c.quiet, "quiet", false, "Suppress logging output.")
}

func (c *encryptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		glog.Errorf("Not enough arguments (expected plaintext file and sealed file)")
		return subcommands.ExitUsageError
	}

	var recipient sealedbox.Key
	switch {
	case c.pubkey != "" && c.userID == "":
		var err error
		if recipient, err = decodeKey(c.pubkey); err != nil {
			glog.Errorf("Invalid public key: %v", err)
			return subcommands.ExitFailure
		}
	case c.userID != "" && c.pubkey == "":
		a, err := openAuthority(c.configFile)
		if err != nil {
			glog.Errorf("Failed to open authority: %v", err)
			return subcommands.ExitFailure
		}
		if recipient, err = a.PublicKey(c.userID); err != nil {
			glog.Errorf("%v", err)
			return subcommands.ExitFailure
		}
	default:
		glog.Errorf("Exactly one of --user and --pubkey is required")
		return subcommands.ExitUsageError
	}

	inFile, err := openInput(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to open plaintext file: %v", err)
		return subcommands.ExitFailure
	}
	defer inFile.Close()

	outFile, logFile, err := openOutput(f.Arg(1))
	if err != nil {
		glog.Errorf("Failed to open file for sealed data: %v", err)
		return subcommands.ExitFailure
	}
	defer outFile.Close()

	if c.stream {
		if err := sealedbox.SealStream(recipient, inFile, outFile); err != nil {
			glog.Errorf("Failed to encrypt plaintext: %v", err)
			return subcommands.ExitFailure
		}
	} else {
		plaintext, err := io.ReadAll(inFile)
		if err != nil {
			glog.Errorf("Failed to read plaintext: %v", err)
			return subcommands.ExitFailure
		}
		payload, err := sealedbox.Encrypt(recipient, plaintext)
		if err != nil {
			glog.Errorf("Failed to encrypt plaintext: %v", err)
			return subcommands.ExitFailure
		}
		if err := sealedbox.WriteSealed(outFile, payload); err != nil {
			glog.Errorf("Failed to write sealed data: %v", err)
			return subcommands.ExitFailure
		}
	}

	if !c.quiet {
		logFile.WriteString(fmt.Sprintln("Wrote sealed data to", outFile.Name()))
	}
	return subcommands.ExitSuccess
}

// decryptCmd handles CLI options for the decryption command.
type decryptCmd struct {
	key   string
	quiet bool
}

func (*decryptCmd) Name() string     { return "decrypt" }
func (*decryptCmd) Synopsis() string { return "opens a sealed file with a private key" }
func (*decryptCmd) Usage() string {
	return `Usage: hydra decrypt --key=<base64> <sealed_file> <plaintext_file>

Examples:
  Open a sealed file with a key printed by recover:
    $ hydra decrypt --key="$(hydra recover --user=alice@example.com)" sealed.bin plaintext.txt

  Decrypt with input from stdin and output to stdout:
    $ cat sealed.bin | hydra decrypt --key=... - - | my-other-application

Flags:
`
}
func (c *decryptCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.key, "key", "", "The base64 private key. Read from stdin if empty.")
	f.BoolVar(&c.quiet, "quiet", false, "Suppress logging output.")
}

func (c *decryptCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		glog.Errorf("Not enough arguments (expected sealed file and plaintext file)")
		return subcommands.ExitUsageError
	}
	if c.key == "" && f.Arg(0) == "-" {
		glog.Errorf("--key is required when the sealed file is read from stdin")
		return subcommands.ExitUsageError
	}

	keyB64, err := readSecret(c.key, "Private key: ")
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		glog.Errorf("Private key is not valid base64: %v", err)
		return subcommands.ExitFailure
	}

	inFile, err := openInput(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to open sealed file: %v", err)
		return subcommands.ExitFailure
	}
	defer inFile.Close()

	outFile, logFile, err := openOutput(f.Arg(1))
	if err != nil {
		glog.Errorf("Failed to open file for plaintext: %v", err)
		return subcommands.ExitFailure
	}
	defer outFile.Close()

	if err := sealedbox.OpenFile(key, inFile, outFile); err != nil {
		glog.Errorf("Failed to decrypt sealed data: %v", err)
		if f.Arg(1) != "-" {
			outFile.Close()
			os.Remove(outFile.Name())
		}
		return subcommands.ExitFailure
	}

	if !c.quiet {
		logFile.WriteString(fmt.Sprintln("Wrote plaintext to", outFile.Name()))
	}
	return subcommands.ExitSuccess
}

// versionCmd handles CLI options for the version command.
type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "prints the current version" }
func (*versionCmd) Usage() string          { return "Usage: hydra version" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Printf("hydra version %s\n", hydraVersion)
	return subcommands.ExitSuccess
}

func main() {
	flag.Parse()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&initCmd{}, "authority")
	subcommands.Register(&registerCmd{}, "authority")
	subcommands.Register(&recoverCmd{}, "authority")
	subcommands.Register(&pubkeyCmd{}, "authority")
	subcommands.Register(&encryptCmd{}, "sealed box")
	subcommands.Register(&decryptCmd{}, "sealed box")
	subcommands.Register(&versionCmd{}, "")

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
