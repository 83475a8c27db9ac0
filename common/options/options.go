// Copyright (C) MongoDB, Inc. 2014-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package options implements command-line options that are used by all of
// the chive tools.
package options

import (
	"fmt"
	"io/ioutil"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chive/chive-tools/common/log"
	"github.com/go-chive/chive-tools/common/util"
	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"gopkg.in/yaml.v2"
)

const DefaultConnectionString = "mongodb://localhost:27017/"

// EnvPrefix is prepended to the upper-cased config file key to name the
// environment variable that sets the same option, e.g. CHIVE_URI.
const EnvPrefix = "CHIVE_"

// Struct encompassing all of the options that are reused across tools: "help",
// "version", verbosity settings, connection settings, etc.
type ToolOptions struct {

	// The name of the tool
	AppName string

	// The version of the tool
	VersionStr string

	// The git commit reference of the tool
	GitCommit string

	// Sub-option types
	*URI
	*General
	*Verbosity
	*Connection
	*Auth
	*Namespace

	// for caching the parser
	parser *flags.Parser

	// option groups that also take values from the --config file
	extraOptionsRegistry []ExtraOptions
}

type Namespace struct {
	// Specified database and collection
	DB         string `short:"d" long:"db" value-name:"<database-name>" description:"database to restore into"`
	Collection string `short:"c" long:"collection" value-name:"<collection-name>" description:"collection to restore into"`
}

func (ns Namespace) String() string {
	return ns.DB + "." + ns.Collection
}

// Struct holding generic options
type General struct {
	Help       bool   `long:"help" description:"print usage"`
	Version    bool   `long:"version" description:"print the tool version and exit"`
	ConfigPath string `long:"config" description:"path to a YAML configuration file"`
}

// Struct holding verbosity-related options
type Verbosity struct {
	SetVerbosity    func(string) `short:"v" long:"verbose" value-name:"<level>" description:"more detailed log output (include multiple times for more verbosity, e.g. -vvvvv, or specify a numeric value, e.g. --verbose=N)" optional:"true" optional-value:""`
	Quiet           bool         `long:"quiet" description:"hide all log output"`
	VLevel          int          `no-flag:"true"`
	VerbosityParsed bool         `no-flag:"true"`
}

func (v Verbosity) Level() int {
	return v.VLevel
}

func (v Verbosity) IsQuiet() bool {
	return v.Quiet
}

type URI struct {
	ConnectionString string `long:"uri" value-name:"mongodb-uri" description:"mongodb uri connection string, including host, credentials and tls mode"`
}

// Struct holding connection-related options
type Connection struct {
	Timeout                int `long:"dialTimeout" default:"3" hidden:"true" description:"dial timeout in seconds"`
	ServerSelectionTimeout int `long:"serverSelectionTimeout" hidden:"true" description:"seconds to wait for server selection; 0 means driver default"`
}

// Struct holding auth-related options
type Auth struct {
	Username string `short:"u" value-name:"<username>" long:"username" description:"username for authentication"`
	Password string `short:"p" value-name:"<password>" long:"password" description:"password for authentication"`
}

// ExtraOptions is implemented by tool specific option groups.
type ExtraOptions interface {
	// Name specifying what type of options these are
	Name() string
}

// ConfigFileOptions is implemented by option groups that can also be set
// from the --config file and the environment. The returned map is keyed by
// YAML field name.
type ConfigFileOptions interface {
	ConfigFileFields() map[string]*string
}

func parseVal(val string) int {
	idx := strings.Index(val, "=")
	ret, err := strconv.Atoi(val[idx+1:])
	if err != nil {
		panic(fmt.Errorf("value was not a valid integer: %v", err))
	}
	return ret
}

// Ask for a new instance of tool options
func New(appName, versionStr, gitCommit, usageStr string) *ToolOptions {
	opts := &ToolOptions{
		AppName:    appName,
		VersionStr: versionStr,
		GitCommit:  gitCommit,

		General:    &General{},
		Verbosity:  &Verbosity{},
		Connection: &Connection{},
		URI:        &URI{},
		Auth:       &Auth{},
		Namespace:  &Namespace{},
		parser: flags.NewNamedParser(
			fmt.Sprintf("%v %v", appName, usageStr), flags.None),
	}

	// Called when -v or --verbose is parsed
	opts.SetVerbosity = func(val string) {
		// Reset verbosity level when we call ParseArgs again and see the verbosity flag
		if opts.VLevel != 0 && opts.VerbosityParsed {
			opts.VerbosityParsed = false
			opts.VLevel = 0
		}

		if i, err := strconv.Atoi(val); err == nil {
			opts.VLevel = opts.VLevel + i // -v=N or --verbose=N
		} else if matched, _ := regexp.MatchString(`^v+$`, val); matched {
			opts.VLevel = opts.VLevel + len(val) + 1 // Handles the -vvv cases
		} else if matched, _ := regexp.MatchString(`^v+=[0-9]$`, val); matched {
			opts.VLevel = parseVal(val) // I.e. -vv=3
		} else if val == "" {
			opts.VLevel = opts.VLevel + 1 // Increment for every occurrence of flag
		} else {
			log.Logvf(log.Always, "Invalid verbosity value given")
			os.Exit(util.ExitBadOptions)
		}
	}

	if _, err := opts.parser.AddGroup("general options", "", opts.General); err != nil {
		panic(fmt.Errorf("couldn't register general options: %v", err))
	}
	if _, err := opts.parser.AddGroup("verbosity options", "", opts.Verbosity); err != nil {
		panic(fmt.Errorf("couldn't register verbosity options: %v", err))
	}
	if _, err := opts.parser.AddGroup("uri options", "", opts.URI); err != nil {
		panic(fmt.Errorf("couldn't register URI options: %v", err))
	}
	if _, err := opts.parser.AddGroup("connection options", "", opts.Connection); err != nil {
		panic(fmt.Errorf("couldn't register connection options: %v", err))
	}
	if _, err := opts.parser.AddGroup("authentication options", "", opts.Auth); err != nil {
		panic(fmt.Errorf("couldn't register auth options: %v", err))
	}
	if _, err := opts.parser.AddGroup("namespace options", "", opts.Namespace); err != nil {
		panic(fmt.Errorf("couldn't register namespace options: %v", err))
	}
	return opts
}

// Print the usage message for the tool to stdout.  Returns whether or not the
// help flag is specified.
func (opts *ToolOptions) PrintHelp(force bool) bool {
	if opts.Help || force {
		opts.parser.WriteHelp(os.Stdout)
	}
	return opts.Help
}

// Print the tool version to stdout.  Returns whether or not the version flag
// is specified.
func (opts *ToolOptions) PrintVersion() bool {
	if opts.Version {
		fmt.Printf("%v version: %v\n", opts.AppName, opts.VersionStr)
		fmt.Printf("git version: %v\n", opts.GitCommit)
	}
	return opts.Version
}

// AddOptions registers an additional options group to this instance
func (opts *ToolOptions) AddOptions(extraOpts ExtraOptions) {
	_, err := opts.parser.AddGroup(extraOpts.Name()+" options", "", extraOpts)
	if err != nil {
		panic(fmt.Sprintf("error setting command line options for %v: %v",
			extraOpts.Name(), err))
	}
	opts.extraOptionsRegistry = append(opts.extraOptionsRegistry, extraOpts)
}

func (opts *ToolOptions) CallArgParser(args []string) ([]string, error) {
	args, err := opts.parser.ParseArgs(args)
	if err != nil {
		return []string{}, err
	}

	// Set VerbosityParsed flag to make sure we reset verbosity level when we call ParseArgs again
	if opts.VLevel != 0 && !opts.VerbosityParsed {
		opts.VerbosityParsed = true
	}

	return args, nil
}

// ParseArgs parses a potential config file followed by the command line args.
// Environment variables override the config file and command line args
// override both. Returns any extra args not accounted for by parsing, as well
// as an error if the parsing returns an error.
func (opts *ToolOptions) ParseArgs(args []string) ([]string, error) {
	LogSensitiveOptionWarnings(args)

	if err := opts.ParseConfigFile(args); err != nil {
		return []string{}, err
	}
	opts.ParseEnvironment(os.LookupEnv)

	args, err := opts.CallArgParser(args)
	if err != nil {
		return []string{}, err
	}

	err = opts.NormalizeOptionsAndURI()
	if err != nil {
		return []string{}, err
	}

	return args, nil
}

// LogSensitiveOptionWarnings logs a warning for any password that appears on
// the command line, either through --password or inside a --uri.
func LogSensitiveOptionWarnings(args []string) {
	passwordMsg := "WARNING: On some systems, a password provided directly using " +
		"--password may be visible to system status programs such as `ps` that may be " +
		"invoked by other users. Consider omitting the password to provide it via stdin, " +
		"or using the --config option to specify a configuration file with the password."

	uriMsg := "WARNING: On some systems, a password provided directly in a connection string " +
		"or using --uri may be visible to system status programs such as `ps` that may be " +
		"invoked by other users. Consider omitting the password to provide it via stdin, " +
		"or using the --config option to specify a configuration file with the password."

	// Parse into throwaway options so the real ones keep their state.
	tempOpts := New("", "", "", "")
	tempOpts.parser.Options |= flags.IgnoreUnknown
	if _, err := tempOpts.CallArgParser(args); err != nil {
		return
	}

	if tempOpts.Auth.Password != "" {
		log.Logvf(log.Always, passwordMsg)
	}

	for _, arg := range args {
		if !strings.HasPrefix(arg, "--uri") {
			continue
		}
		if cs, err := connstring.Parse(tempOpts.URI.ConnectionString); err == nil && cs.Password != "" {
			log.Logvf(log.Always, uriMsg)
		}
		break
	}
}

// ParseConfigFile iterates over args to find a --config option. If not found, we return.
// If found, we read the contents of the specified config file in YAML format and
// store every recognized value in opts. Unknown keys are an error.
func (opts *ToolOptions) ParseConfigFile(args []string) error {
	// Get config file path from the arguments, if specified.
	_, err := opts.CallArgParser(args)
	if err != nil {
		return err
	}

	// No --config option was specified.
	if opts.General.ConfigPath == "" {
		return nil
	}

	// --config option specifies a file path.
	configBytes, err := ioutil.ReadFile(opts.General.ConfigPath)
	if err != nil {
		return errors.Wrapf(err, "error opening file with --config")
	}

	// Unmarshal the config file as a top-level YAML file.
	var config map[string]string
	err = yaml.UnmarshalStrict(configBytes, &config)
	if err != nil {
		return errors.Wrapf(err, "error parsing config file %s", opts.General.ConfigPath)
	}

	fields := opts.configFileFields()
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, ok := fields[key]
		if !ok {
			return fmt.Errorf("error parsing config file %s: unknown option %q", opts.General.ConfigPath, key)
		}
		*field = config[key]
	}

	return nil
}

// ParseEnvironment sets every option that has a config file key from the
// matching CHIVE_* environment variable, if that variable is set.
func (opts *ToolOptions) ParseEnvironment(lookup func(string) (string, bool)) {
	for key, field := range opts.configFileFields() {
		if value, ok := lookup(EnvPrefix + strings.ToUpper(key)); ok {
			*field = value
		}
	}
}

func (opts *ToolOptions) configFileFields() map[string]*string {
	fields := map[string]*string{
		"uri":        &opts.URI.ConnectionString,
		"username":   &opts.Auth.Username,
		"password":   &opts.Auth.Password,
		"db":         &opts.Namespace.DB,
		"collection": &opts.Namespace.Collection,
	}
	for _, extraOpts := range opts.extraOptionsRegistry {
		configOpts, ok := extraOpts.(ConfigFileOptions)
		if !ok {
			continue
		}
		for key, field := range configOpts.ConfigFileFields() {
			fields[key] = field
		}
	}
	return fields
}

// NormalizeOptionsAndURI fills in the default connection string and
// validates it together with the namespace.
func (opts *ToolOptions) NormalizeOptionsAndURI() error {
	if opts.URI == nil {
		opts.URI = &URI{}
	}
	if opts.URI.ConnectionString == "" {
		opts.URI.ConnectionString = DefaultConnectionString
	}

	if _, err := connstring.ParseAndValidate(opts.URI.ConnectionString); err != nil {
		return errors.Wrapf(err, "error parsing uri %s", util.SanitizeURI(opts.URI.ConnectionString))
	}

	if opts.Namespace == nil {
		return nil
	}
	if opts.Namespace.DB != "" {
		if err := util.ValidateDBName(opts.Namespace.DB); err != nil {
			return fmt.Errorf("invalid db name: %v", err)
		}
	}
	if opts.Namespace.Collection != "" {
		if err := util.ValidateCollectionName(opts.Namespace.Collection); err != nil {
			return fmt.Errorf("invalid collection name: %v", err)
		}
	}
	return nil
}

// ShouldAskForPassword returns whether a username is known, either from
// --username or from the connection string, without a matching password.
func (opts *ToolOptions) ShouldAskForPassword() bool {
	if opts.Auth != nil && opts.Auth.Password != "" {
		return false
	}
	if opts.Auth != nil && opts.Auth.Username != "" {
		return true
	}
	cs, err := connstring.Parse(opts.URI.ConnectionString)
	if err != nil {
		return false
	}
	return cs.Username != "" && !cs.PasswordSet
}
