/*
 * iptv-bridge is a reverse proxy and aggregator for IPTV providers.
 * Copyright (C) 2026  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucasduport/iptv-bridge/pkg/catalog"
	"github.com/lucasduport/iptv-bridge/pkg/config"
	"github.com/lucasduport/iptv-bridge/pkg/database"
	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/parser"
	"github.com/lucasduport/iptv-bridge/pkg/playlist"
	"github.com/lucasduport/iptv-bridge/pkg/scheduler"
	"github.com/lucasduport/iptv-bridge/pkg/server"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
	"github.com/lucasduport/iptv-bridge/pkg/xtream"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iptv-bridge",
	Short: "Reverse proxy and aggregator for IPTV providers",
	Long: `iptv-bridge ingests an M3U provider playlist into a relational
catalog, renders filtered playlist variants, and proxies both the media
streams and the Xtream Codes client API behind its own credentials.`,

	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("[iptv-bridge] Server is starting...")

		conf, err := buildConfig()
		if err != nil {
			log.Fatal(err)
		}

		db, err := database.NewDBManager(conf.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()

		fetch := fetcher.New()

		var p *parser.Parser
		if conf.Xtream.Enabled {
			p = parser.NewWithXtream(conf.GroupExcludes, &conf.Xtream, fetch)
		} else {
			p = parser.New(conf.GroupExcludes)
		}

		cat := catalog.New(db, p, fetch)
		playlistDir := viper.GetString("playlist-dir")
		builder := playlist.NewBuilder(playlistDir, conf.ProxyDomain, &conf.Xtream)
		xt := xtream.New(db, fetch, conf)
		jobs := scheduler.New(conf, cat, builder, playlistDir)

		ctx := context.Background()
		if conf.InitApp {
			if err := jobs.InitApp(ctx); err != nil {
				utils.ErrorLog("Startup ingest failed: %v", err)
			}
		}
		go jobs.Run(ctx)

		srv := server.NewServer(conf, cat, xt, fetch, builder, playlistDir)
		if err := srv.Serve(); err != nil {
			log.Fatal(err)
		}
	},
}

// buildConfig assembles the process configuration from viper.
func buildConfig() (*config.ProxyConfig, error) {
	rawM3u := viper.GetString("m3u")
	if rawM3u == "" {
		return nil, fmt.Errorf("m3u source URL is required")
	}
	m3uURL, err := url.Parse(rawM3u)
	if err != nil || !m3uURL.IsAbs() {
		return nil, fmt.Errorf("invalid m3u source URL %q", rawM3u)
	}

	environment := config.Environment(viper.GetString("env"))
	if environment != config.EnvDevelopment && environment != config.EnvProduction {
		return nil, fmt.Errorf("invalid env %q", environment)
	}

	conf := &config.ProxyConfig{
		Port:                  viper.GetInt("port"),
		M3uURL:                m3uURL,
		DatabaseURL:           viper.GetString("database-url"),
		InitApp:               viper.GetBool("init-app"),
		Environment:           environment,
		HourlyUpdateFrequency: viper.GetInt("hourly-update-frequency"),
		GroupExcludes:         viper.GetStringSlice("group-excludes"),
		ProxyDomain:           viper.GetString("proxy-domain"),
		Xtream: config.XtreamConfig{
			Enabled:         viper.GetBool("xtream-enabled"),
			BaseDomain:      viper.GetString("xtream-base-domain"),
			Username:        config.CredentialString(viper.GetString("xtream-username")),
			Password:        config.CredentialString(viper.GetString("xtream-password")),
			ProxiedDomain:   viper.GetString("xtream-proxied-domain"),
			ProxiedUsername: config.CredentialString(viper.GetString("xtream-proxied-username")),
			ProxiedPassword: config.CredentialString(viper.GetString("xtream-proxied-password")),
		},
	}

	if conf.ProxyDomain == "" {
		return nil, fmt.Errorf("proxy-domain is required")
	}
	if conf.Xtream.Enabled && conf.Xtream.BaseDomain == "" {
		return nil, fmt.Errorf("xtream-base-domain is required when xtream is enabled")
	}

	return conf, nil
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.iptv-bridge.yaml)")

	// Basic configuration flags
	rootCmd.Flags().StringP("m3u", "u", "", "Provider M3U playlist URL")
	rootCmd.Flags().Int("port", 3001, "Listening port")
	rootCmd.Flags().String("database-url", "", "PostgreSQL DSN")
	rootCmd.Flags().Bool("init-app", true, "Run the ingest and playlist generation path at startup")
	rootCmd.Flags().String("env", "development", "Runtime environment (development or production)")
	rootCmd.Flags().Int("hourly-update-frequency", 12, "Provider refresh interval in hours")
	rootCmd.Flags().StringSlice("group-excludes", nil, "Case-insensitive substring patterns excluding groups")
	rootCmd.Flags().String("proxy-domain", "", "Public hostname composed into proxified URLs")
	rootCmd.Flags().String("playlist-dir", ".", "Directory for generated playlist files")

	// Xtream proxy flags
	rootCmd.Flags().Bool("xtream-enabled", false, "Enable the Xtream proxy routes")
	rootCmd.Flags().String("xtream-base-domain", "", "Real upstream Xtream panel domain")
	rootCmd.Flags().String("xtream-username", "", "Real upstream Xtream username")
	rootCmd.Flags().String("xtream-password", "", "Real upstream Xtream password")
	rootCmd.Flags().String("xtream-proxied-domain", "", "Public domain clients connect to")
	rootCmd.Flags().String("xtream-proxied-username", "", "Username clients authenticate with")
	rootCmd.Flags().String("xtream-proxied-password", "", "Password clients authenticate with")

	// Bind all flags to viper
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal("Error binding PFlags to viper")
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory and current directory
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".iptv-bridge")
	}

	// Replace hyphens with underscores in environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read environment variables
	viper.AutomaticEnv()

	// Read in config file if found
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
