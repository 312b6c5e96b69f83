/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// deviceCommands manages SMS-forwarding devices from the command line.
func deviceCommands(p *paymatchInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "manage sms forwarding devices",
	}

	cmd.AddCommand(registerDeviceCommand(p))
	cmd.AddCommand(revokeDeviceCommand(p))

	return cmd
}

func registerDeviceCommand(p *paymatchInstance) *cobra.Command {
	var merchantID, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "register a device and print its credential",
		Run: func(cmd *cobra.Command, args []string) {
			device, credential, err := p.paymatch.RegisterDevice(context.Background(), merchantID, name)
			if err != nil {
				logrus.Error(err)
				return
			}
			fmt.Printf("device_id:  %s\nmerchant:   %s\ncredential: %s\n", device.DeviceID, device.MerchantID, credential)
			fmt.Println("Store the credential now. It cannot be shown again.")
		},
	}

	cmd.Flags().StringVar(&merchantID, "merchant", "", "merchant the device forwards payments for")
	cmd.Flags().StringVar(&name, "name", "", "device label")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func revokeDeviceCommand(p *paymatchInstance) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "revoke [device_id]",
		Short: "revoke a device",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := p.paymatch.RevokeDevice(context.Background(), args[0], actor); err != nil {
				logrus.Error(err)
				return
			}
			fmt.Printf("Device %s revoked\n", args[0])
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "operator performing the revocation")
	return cmd
}
