package kv

import (
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			return withSession(cmd.Context(), func(c *client.Client) error {
				if err := c.Put(key, value); err != nil {
					return err
				}
				fmt.Println("put successfully")
				return nil
			})
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key and verifies its digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(cmd.Context(), func(c *client.Client) error {
				value, err := c.Get(key)
				if isRejection(err) {
					fmt.Printf("key=%s, found=false\n", key)
					return nil
				} else if err != nil {
					return err
				}
				fmt.Printf("key=%s, found=true, value=%s\n", key, value)
				return nil
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return withSession(cmd.Context(), func(c *client.Client) error {
				err := c.Delete(key)
				if isRejection(err) {
					fmt.Printf("key=%s does not exist\n", key)
					return nil
				} else if err != nil {
					return err
				}
				fmt.Println("delete successfully")
				return nil
			})
		},
	}
)
