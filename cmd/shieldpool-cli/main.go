// Command shieldpool-cli prints the usage of the pool, VK-upload and note
// subcommands of the shielded pool. None of its commands contacts a daemon
// or builds an operation's inputs.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("shieldpool-cli v%s\n", version)

	case "help":
		printUsage()

	case "status":
		cmdStatus()

	case "pool":
		if len(os.Args) < 3 {
			fmt.Println("Usage: shieldpool-cli pool <subcommand>")
			fmt.Println("Subcommands: info, init, rotate-vk")
			os.Exit(1)
		}
		cmdPool(os.Args[2:])

	case "vk":
		if len(os.Args) < 3 {
			fmt.Println("Usage: shieldpool-cli vk <subcommand>")
			fmt.Println("Subcommands: init, write, hash")
			os.Exit(1)
		}
		cmdVK(os.Args[2:])

	case "note":
		if len(os.Args) < 3 {
			fmt.Println("Usage: shieldpool-cli note <subcommand>")
			fmt.Println("Subcommands: shield, transfer, unshield")
			os.Exit(1)
		}
		cmdNote(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("shieldpool-cli - command-line client for the shielded pool")
	fmt.Println()
	fmt.Println("Usage: shieldpool-cli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("  status   Show daemon connectivity status")
	fmt.Println("  pool     Pool operations (info, init, rotate-vk)")
	fmt.Println("  vk       Verification-key upload (init, write, hash)")
	fmt.Println("  note     Value-flow operations (shield, transfer, unshield)")
	fmt.Println()
	fmt.Println("Run 'shieldpool-cli <command>' with no subcommand to list its subcommands.")
}

func cmdStatus() {
	fmt.Println("Status:")
	fmt.Println("  Version: " + version)
	fmt.Println("  Daemon:  not connected")
}

func cmdPool(args []string) {
	switch args[0] {
	case "info":
		fmt.Println("Usage: shieldpool-cli pool info --pool-id <hex>")

	case "init":
		fmt.Println("Usage: shieldpool-cli pool init --pool-id <hex> --authority <hex> --asset-id <hex> --vk-hash <hex> [--depth 20] [--relayer <hex>] [--relayer-fee-bps 0]")

	case "rotate-vk":
		fmt.Println("Usage: shieldpool-cli pool rotate-vk --pool-id <hex> --new-vk-hash <hex>")

	default:
		fmt.Printf("Unknown pool command: %s\n", args[0])
	}
}

func cmdVK(args []string) {
	switch args[0] {
	case "init":
		fmt.Println("Usage: shieldpool-cli vk init --pool-id <hex> --size <452-2048>")

	case "write":
		fmt.Println("Usage: shieldpool-cli vk write --pool-id <hex> --offset <n> --data <hex, <=800 bytes>")

	case "hash":
		fmt.Println("Usage: shieldpool-cli vk hash --pool-id <hex>")

	default:
		fmt.Printf("Unknown vk command: %s\n", args[0])
	}
}

func cmdNote(args []string) {
	switch args[0] {
	case "shield":
		fmt.Println("Usage: shieldpool-cli note shield --pool-id <hex> --amount <n> --commitment <hex>")

	case "transfer":
		fmt.Println("Usage: shieldpool-cli note transfer --pool-id <hex> --proof <hex> --n1 <hex> --n2 <hex> --c1 <hex> --c2 <hex> --root <hex>")

	case "unshield":
		fmt.Println("Usage: shieldpool-cli note unshield --pool-id <hex> --proof <hex> --n1 <hex> --n2 <hex> --c1 <hex> --c2 <hex> --root <hex> --amount <n> --recipient <hex>")

	default:
		fmt.Printf("Unknown note command: %s\n", args[0])
	}
}
