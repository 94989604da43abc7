package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vigil/internal/dao"
	"vigil/internal/server"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Tools for vigil",
	Long:  `Various tools and utilities for vigil application.`,
}

var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// schemaTypes are the payloads of the HTTP api and the alert topic.
var schemaTypes = map[string]any{
	"inference":     dao.Inference{},
	"video-source":  dao.VideoSource{},
	"camera-source": dao.CameraSource{},
	"file":          dao.FileCreateResponse{},
	"task-status":   dao.TaskStatus{},
	"alert":         dao.DetectionAlert{},
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var schemaCmd = &cobra.Command{
	Use:   "schema <type>",
	Short: "Print the JSON schema of a payload",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, ok := schemaTypes[args[0]]
		if !ok {
			logrus.Fatalf("unknown type %q, one of: %s", args[0], strings.Join(schemaNames(), ", "))
		}
		printJSON(reflector.Reflect(v))
	},
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an api token signed with the configured jwt secret",
	Run: func(cmd *cobra.Command, args []string) {
		conf := clientConfig()
		if conf.JwtSecret == "" {
			logrus.Fatal("jwtSecret is not configured, the api is open")
		}
		token, err := server.NewToken(conf.JwtSecret, tokenSubject, tokenTTL)
		if err != nil {
			logrus.Fatalf("sign token error, %s", err.Error())
		}
		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "vigil", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	toolsCmd.AddCommand(schemaCmd)
	toolsCmd.AddCommand(tokenCmd)
}
