package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/jobmarket/cas"
	"github.com/nspcc-dev/jobmarket/envelope"
	"github.com/urfave/cli"
)

var keyFlag = cli.StringFlag{
	Name:  "key, k",
	Usage: "Hex-encoded 32-byte session key, plain contents are used if omitted",
}

func parseKey(c *cli.Context) ([]byte, error) {
	s := c.String("key")
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}
	if len(key) != envelope.KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", envelope.KeySize, len(key))
	}
	return key, nil
}

func cidCommand() cli.Command {
	return cli.Command{
		Name:      "cid",
		Usage:     "Convert content hash to CID",
		ArgsUsage: "<hex hash>",
		Action: func(c *cli.Context) error {
			h, err := cas.ParseHash(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Println(cas.HashToCID(h))
			return nil
		},
	}
}

func hashCommand() cli.Command {
	return cli.Command{
		Name:      "hash",
		Usage:     "Convert CID to content hash",
		ArgsUsage: "<CID>",
		Action: func(c *cli.Context) error {
			h, err := cas.CIDToHash(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Println("0x" + h.StringBE())
			return nil
		},
	}
}

func publishCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "publish",
		Usage:     "Seal the file contents and publish them in the content store",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{configFlag, keyFlag},
		Action: func(c *cli.Context) error {
			if !c.Args().Present() {
				return errors.New("missing file to publish")
			}
			msg, err := os.ReadFile(c.Args().First())
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			key, err := parseKey(c)
			if err != nil {
				return err
			}

			n, err := newNode(c)
			if err != nil {
				return err
			}
			defer n.close()

			cs, err := n.contentStore()
			if err != nil {
				return err
			}

			ref, err := cs.PublishContent(ctx, msg, key)
			if err != nil {
				return err
			}
			fmt.Printf("hash: 0x%s\ncid: %s\n", ref.Hash.StringBE(), ref.CID)
			return nil
		},
	}
}

func fetchCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "fetch",
		Usage:     "Fetch and open the content from the content store",
		ArgsUsage: "<CID or hex hash>",
		Flags:     []cli.Flag{configFlag, keyFlag, metricsFlag},
		Action: func(c *cli.Context) error {
			h, err := cas.ParseRef(c.Args().First())
			if err != nil {
				return err
			}
			key, err := parseKey(c)
			if err != nil {
				return err
			}

			n, err := newNode(c)
			if err != nil {
				return err
			}
			defer n.close()

			cs, err := n.contentStore()
			if err != nil {
				return err
			}

			msg, err := cs.FetchContent(ctx, h, key)
			if err != nil {
				return err
			}
			if err := n.writeMetrics(c); err != nil {
				return err
			}
			_, err = os.Stdout.Write(msg)
			return err
		},
	}
}

func pubKeyCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "pubkey",
		Usage: "Print encryption public key of the configured wallet",
		Flags: []cli.Flag{configFlag},
		Action: func(c *cli.Context) error {
			n, err := newNode(c)
			if err != nil {
				return err
			}
			defer n.close()

			s, err := n.signer()
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("wallet is not configured")
			}
			d, err := n.deriver()
			if err != nil {
				return err
			}

			pub, err := d.EncryptionPublicKey(ctx, s)
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(pub))
			return nil
		},
	}
}
