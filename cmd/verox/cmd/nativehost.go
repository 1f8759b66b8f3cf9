package cmd

import (
	"github.com/spf13/cobra"
)

func newNativeHostCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "native-host [origin]",
		Short: "Serve browser native messaging on stdin and stdout",
		Long: `native-host speaks the browser native messaging protocol: each message is a
4-byte length in native byte order followed by UTF-8 JSON. Logs go to stderr.
The browser passes the caller origin as an argument; it is ignored.`,
		Args:   cobra.ArbitraryArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			srv, err := rt.NativeHost()
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
