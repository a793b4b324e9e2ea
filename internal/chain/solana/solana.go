// Package solana implements the chain service against the Solana token
// program and Metaplex metadata program.
//
// Signing policy: the issuer pays. The configured authority is fee payer,
// mint authority and update authority; the recipient only receives the token.
// The two-phase flow prepares and fully signs the transaction server-side and
// hands it to the client for submission, so a certificate stays
// partially_minted until the client-mediated submission lands.
package solana

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"attest/internal/chain"
)

// Config is injected explicitly; the client never reads process-wide state at
// call time.
type Config struct {
	// RPCEndpoint defaults to the public devnet endpoint when empty.
	RPCEndpoint string
	// AuthorityKey is the issuer keypair, base64 or solana-keygen JSON.
	AuthorityKey string
}

// Client mints one non-fungible token per certificate: decimals 0, supply 1,
// max supply 1, with a Metaplex metadata and master edition account.
type Client struct {
	rpc       *client.Client
	authority types.Account
}

var _ chain.Service = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	endpoint := cfg.RPCEndpoint
	if endpoint == "" {
		endpoint = rpc.DevnetRPCEndpoint
	}
	authority, err := ParseAuthorityKey(cfg.AuthorityKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpc:       client.NewClient(endpoint),
		authority: authority,
	}, nil
}

// IssuerAddress returns the authority's public key, used to fill a
// certificate's issuer address when the caller left it empty.
func (c *Client) IssuerAddress() string {
	return c.authority.PublicKey.ToBase58()
}

// PrepareTransfer builds the full mint transaction and returns it serialized
// without submitting. The fresh mint account's address is the reference.
func (c *Client) PrepareTransfer(ctx context.Context, req chain.PrepareRequest) (chain.Prepared, error) {
	mint := types.NewAccount()
	tx, err := c.buildMintTransaction(ctx, mint, req)
	if err != nil {
		return chain.Prepared{}, err
	}
	serialized, err := tx.Serialize()
	if err != nil {
		return chain.Prepared{}, fmt.Errorf("serialize mint transaction: %w", err)
	}
	return chain.Prepared{
		Reference: mint.PublicKey.ToBase58(),
		Payload:   base64.StdEncoding.EncodeToString(serialized),
	}, nil
}

// SubmitSigned decodes a payload produced by PrepareTransfer and submits it.
func (c *Client) SubmitSigned(ctx context.Context, payload string) (chain.Submitted, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return chain.Submitted{}, fmt.Errorf("decode signed payload: %w", err)
	}
	tx, err := types.TransactionDeserialize(raw)
	if err != nil {
		return chain.Submitted{}, fmt.Errorf("deserialize signed payload: %w", err)
	}
	signature, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return chain.Submitted{}, fmt.Errorf("submit signed transaction: %w", err)
	}
	return chain.Submitted{Signature: signature}, nil
}

// MintAndConfirm is the single-phase variant: build and submit in one call.
func (c *Client) MintAndConfirm(ctx context.Context, req chain.PrepareRequest) (chain.Minted, error) {
	mint := types.NewAccount()
	tx, err := c.buildMintTransaction(ctx, mint, req)
	if err != nil {
		return chain.Minted{}, err
	}
	signature, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return chain.Minted{}, fmt.Errorf("send mint transaction: %w", err)
	}
	return chain.Minted{
		Reference: mint.PublicKey.ToBase58(),
		Signature: signature,
	}, nil
}

func (c *Client) buildMintTransaction(ctx context.Context, mint types.Account, req chain.PrepareRequest) (types.Transaction, error) {
	owner := common.PublicKeyFromString(req.Recipient)
	feePayer := c.authority

	ata, _, err := common.FindAssociatedTokenAddress(owner, mint.PublicKey)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("find associated token address: %w", err)
	}
	metadataPubkey, err := token_metadata.GetTokenMetaPubkey(mint.PublicKey)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("derive metadata account: %w", err)
	}
	masterEditionPubkey, err := token_metadata.GetMasterEdition(mint.PublicKey)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("derive master edition account: %w", err)
	}

	mintRent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("get rent exemption: %w", err)
	}
	recent, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	// One certificate, one token.
	maxSupply := uint64(1)

	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: []types.Account{mint, feePayer},
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        feePayer.PublicKey,
			RecentBlockhash: recent.Blockhash,
			Instructions: []types.Instruction{
				system.CreateAccount(system.CreateAccountParam{
					From:     feePayer.PublicKey,
					New:      mint.PublicKey,
					Owner:    common.TokenProgramID,
					Lamports: mintRent,
					Space:    token.MintAccountSize,
				}),
				token.InitializeMint(token.InitializeMintParam{
					Decimals:   0,
					Mint:       mint.PublicKey,
					MintAuth:   feePayer.PublicKey,
					FreezeAuth: &feePayer.PublicKey,
				}),
				token_metadata.CreateMetadataAccountV3(
					token_metadata.CreateMetadataAccountV3Param{
						Metadata:                metadataPubkey,
						Mint:                    mint.PublicKey,
						MintAuthority:           feePayer.PublicKey,
						UpdateAuthority:         feePayer.PublicKey,
						Payer:                   feePayer.PublicKey,
						UpdateAuthorityIsSigner: true,
						IsMutable:               false,
						Data: token_metadata.DataV2{
							Name:                 req.Metadata.Name,
							Symbol:               req.Metadata.Symbol,
							Uri:                  req.Metadata.URI,
							SellerFeeBasisPoints: 0,
							Creators: &[]token_metadata.Creator{
								{
									Address:  feePayer.PublicKey,
									Verified: true,
									Share:    100,
								},
							},
						},
						CollectionDetails: nil,
					},
				),
				associated_token_account.CreateAssociatedTokenAccount(
					associated_token_account.CreateAssociatedTokenAccountParam{
						Funder:                 feePayer.PublicKey,
						Owner:                  owner,
						Mint:                   mint.PublicKey,
						AssociatedTokenAccount: ata,
					},
				),
				token.MintTo(token.MintToParam{
					Mint:   mint.PublicKey,
					To:     ata,
					Auth:   feePayer.PublicKey,
					Amount: 1,
				}),
				token_metadata.CreateMasterEditionV3(
					token_metadata.CreateMasterEditionParam{
						Edition:         masterEditionPubkey,
						Mint:            mint.PublicKey,
						UpdateAuthority: feePayer.PublicKey,
						MintAuthority:   feePayer.PublicKey,
						Metadata:        metadataPubkey,
						Payer:           feePayer.PublicKey,
						MaxSupply:       &maxSupply,
					},
				),
			},
		}),
	})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("build mint transaction: %w", err)
	}
	return tx, nil
}
