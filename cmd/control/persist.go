/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-rda/pkg/command"
	"jinr.ru/greenlab/go-rda/pkg/config"
)

func NewPersistCommand(cfg *config.Config) *cobra.Command {
	var filePrefix string
	var dir string
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Start writing save data to a new file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, err := command.NewApiClient(cfg).Persist(dir, filePrefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filename)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", cfg.Save.Dir, "Directory path where to persist data")
	cmd.Flags().StringVar(&filePrefix, "file-prefix", cfg.Save.FilePrefix, "File name prefix")

	return cmd
}

func NewFlushCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Close the save file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Flush()
		},
	}
}
