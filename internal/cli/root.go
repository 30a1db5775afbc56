// Package cli cartctl 命令行：登录、浏览商品流、同步购物车与下单。
package cli

import (
	"github.com/reelcraft/reelcraft/internal/cache"

	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	BaseURL    string
	StateDir   string
}

// NewRootCommand 创建 cartctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:           "cartctl",
		Short:         "ReelCraft cart client",
		Long:          "Browse the ReelCraft feed and keep a local cart in sync with the marketplace.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cache.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./config.yml)")
	cmd.PersistentFlags().StringVar(&opts.BaseURL, "base-url", "", "marketplace API base url (overrides client.base_url)")
	cmd.PersistentFlags().StringVar(&opts.StateDir, "state-dir", "", "directory for the session and cart snapshot (overrides client.state_dir)")

	cmd.AddCommand(newLoginCommand(rt))
	cmd.AddCommand(newRegisterCommand(rt))
	cmd.AddCommand(newLogoutCommand(rt))
	cmd.AddCommand(newFeedCommand(rt))
	cmd.AddCommand(newCartCommand(rt))
	cmd.AddCommand(newCheckoutCommand(rt))

	return cmd
}
