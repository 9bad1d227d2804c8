/*
Package cmd implements the recall-go command-line interface: the hook
entry points called by the host runtime, plus operator commands for
service health and performance profiles.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

/*
rootCmd represents the base command when called without any subcommands
*/
var (
	projectName = "recall-go"
	cfgFile     string

	rootCmd = &cobra.Command{
		Use:   "recall-go",
		Short: "Context injection and memory retrieval for conversational coding sessions",
		Long:  longRoot,
	}
)

/*
Execute is the main entry point for the recall-go CLI. It initializes the
root command and executes it.
*/
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)
}

/*
initConfig writes the default config file to the user's home directory if
it doesn't exist, then reads the config file from the user's home
directory. A local .env file is loaded first so the memory service API key
can live outside the config.
*/
func initConfig() {
	var err error

	_ = godotenv.Load()

	if err = writeConfig(); err != nil {
		log.Fatal(err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	// Add user config directory (~/.recall-go)
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(home + "/." + projectName)
	viper.SetEnvPrefix("RECALL")
	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		log.Fatal(err)
		return
	}
}

/*
writeConfig is a function that writes the default config file to the user's home directory.
*/
func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	// Create the config directory once before processing files
	configDir := home + "/." + projectName
	if !CheckFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	for _, file := range []string{cfgFile} {
		fullPath := configDir + "/" + file

		if CheckFileExists(fullPath) {
			continue
		}

		if fh, err = embedded.Open("cfg/" + file); err != nil {
			return fmt.Errorf("failed to open embedded config file: %w", err)
		}

		if _, err = io.Copy(&buf, fh); err != nil {
			fh.Close()
			return fmt.Errorf("failed to read embedded config file: %w", err)
		}

		if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			fh.Close()
			return fmt.Errorf("failed to write config file: %w", err)
		}

		log.Println("wrote config file to", fullPath)
		buf.Reset()
		fh.Close()
	}

	return nil
}

func CheckFileExists(filePath string) bool {
	_, error := os.Stat(filePath)
	return !errors.Is(error, os.ErrNotExist)
}

// stateDir returns the directory holding session records and caches.
func stateDir() string {
	home, _ := os.UserHomeDir()
	return home + "/." + projectName + "/state"
}

/*
longRoot contains the detailed help text for the root command.
*/
var longRoot = `
recall-go sits alongside a conversational coding assistant and decides, per
host event, whether to fetch previously recorded memories from the memory
service and inject them into the conversation. At session end it distils
the finished conversation into a new memory and stores it back.
`
