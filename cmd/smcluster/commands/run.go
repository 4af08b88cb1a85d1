package commands

import (
	"github.com/spf13/cobra"

	"github.com/viant/smcluster/cmd/smcluster/handlers"
)

// Run returns the run command.
func Run() *cobra.Command {
	request := &handlers.Request{}

	cmd := &cobra.Command{
		Use:   "run [flags] COMMAND [ARGS...]",
		Short: "Start a cluster, run a job on it and tear it down",
		Long: `Run starts one node-process on every machine of the current allocation.

The first node-process to claim the session starts the Spark master, every
node starts a worker, and the election node then runs COMMAND with
SPARK_MASTER_URL set. The cluster is torn down when COMMAND exits and run
exits with its exit code.

Example:
  smcluster run -w $HOME/session -c 16 -m 60000 spark-submit app.py`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request.Job = args
			return execute(cmd, handlers.Run, request)
		},
	}

	bindCommon(cmd, request)
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func bindCommon(cmd *cobra.Command, request *handlers.Request) {
	flags := cmd.Flags()
	flags.IntVarP(&request.Cores, "cores", "c", 0, "Cores per worker")
	flags.IntVarP(&request.MemoryMB, "memory", "m", 0, "Memory per worker in MB")
	flags.BoolVarP(&request.UseHadoopHome, "hadoop", "H", false, "Start HDFS from HADOOP_HOME")
	flags.StringVarP(&request.StorageHome, "hdfs-home", "h", "", "Start HDFS from this installation")
	flags.StringVarP(&request.StorageHost, "hdfs-host", "s", "", "Use an external HDFS namenode host")
	flags.StringVarP(&request.Workdir, "workdir", "w", "", "Shared session directory (default $SM_WORKDIR)")
	flags.StringVarP(&request.EnvScript, "env", "e", "", "Script sourced before every daemon")
	flags.StringVar(&request.ConfigFile, "config", "", "TOML configuration file (default $SM_CONFIG)")
	flags.BoolVar(&request.Verbose, "verbose", false, "Debug logging")
	// -h is the storage home; help stays reachable as --help.
	flags.Bool("help", false, "help for "+cmd.Name())
	cmd.MarkFlagsMutuallyExclusive("hadoop", "hdfs-home")
}
