// Package mint turns an uploaded media file into a minted token: the file is
// pinned, a metadata document pointing at it is pinned, and the token is
// minted with the metadata URL. Steps run strictly in that order and nothing
// is unpinned when a later step fails.
package mint

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/nftennis/nftennis-backend/internal/activity"
	"github.com/nftennis/nftennis-backend/internal/metadata"
	"github.com/nftennis/nftennis-backend/internal/nfts"
	"github.com/nftennis/nftennis-backend/pkg/db/models"
	"github.com/nftennis/nftennis-backend/pkg/enums"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/storage/pinata"
)

type pinner interface {
	PinFile(ctx context.Context, name, contentType string, r io.Reader) (pinata.Pinned, error)
	PinJSON(ctx context.Context, name string, doc any) (pinata.Pinned, error)
}

type minter interface {
	Mint(ctx context.Context, input nfts.MintInput) (*nfts.MintResult, error)
}

// Pipeline is the upload-and-mint flow behind POST /api/mint.
type Pipeline interface {
	Run(ctx context.Context, input Input) (*Result, error)
}

// Input is the multipart form. File is read once.
type Input struct {
	Caller      common.Address
	Recipient   string
	Name        string
	Description string
	Rarity      string
	MediaType   string
	FileName    string
	File        io.Reader
}

type Result struct {
	Token       *nfts.MintResult
	FileCID     string
	MetadataCID string
	MediaURL    string
	MetadataURL string
	MimeType    string
}

type PipelineParams struct {
	Pinner   pinner
	Minter   minter
	Operator common.Address
	Recorder *activity.Recorder
	Logger   *logger.Logger
}

type pipeline struct {
	pinner   pinner
	minter   minter
	operator common.Address
	recorder *activity.Recorder
	logg     *logger.Logger
}

func NewPipeline(p PipelineParams) (Pipeline, error) {
	if p.Pinner == nil {
		return nil, fmt.Errorf("pinner required")
	}
	if p.Minter == nil {
		return nil, fmt.Errorf("minter required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &pipeline{
		pinner:   p.Pinner,
		minter:   p.Minter,
		operator: p.Operator,
		recorder: p.Recorder,
		logg:     p.Logger,
	}, nil
}

func (p *pipeline) Run(ctx context.Context, input Input) (*Result, error) {
	recipient := strings.TrimSpace(input.Recipient)
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if recipient == "" || name == "" || description == "" || strings.TrimSpace(input.Rarity) == "" || input.File == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "All fields are required")
	}
	if !common.IsHexAddress(recipient) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient must be a hex address")
	}
	rarity, err := enums.ParseRarity(input.Rarity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "rarity must be 0-3 or a rarity name")
	}
	if input.Caller != p.operator {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Only the contract owner can mint")
	}

	mimeType, media, body, err := sniff(input.File)
	if err != nil {
		if err == errUnsupportedMedia {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported media type").
				WithDetails(map[string]string{"detected": mimeType})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read upload")
	}
	if raw := strings.TrimSpace(input.MediaType); raw != "" {
		declared, err := enums.ParseMediaType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mediaType must be 0-1 or a media type name")
		}
		if declared != media {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file content is %s but mediaType is %s", media, declared))
		}
	}
	if msg := enums.CompatibilityError(rarity, media); msg != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msg)
	}

	fileName := path.Base(strings.TrimSpace(input.FileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		fileName = name
	}

	file, err := p.pinner.PinFile(ctx, fileName, mimeType, body)
	if err != nil {
		return nil, pkgerrors.Upstream(err, "file upload failed")
	}
	pinIDs := []uuid.UUID{p.recorder.Pin(ctx, &models.Pin{
		CID:       file.CID,
		Kind:      enums.PinKindFile,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: file.Size,
		Status:    enums.PinStatusPinned,
		Recipient: recipient,
	})}

	doc := metadata.Build(name, description, file.URL, rarity, media)
	docName := name + ".json"
	meta, err := p.pinner.PinJSON(ctx, docName, doc)
	if err != nil {
		p.recorder.SettlePins(ctx, pinIDs, nil)
		return nil, pkgerrors.Upstream(err, "metadata upload failed")
	}
	pinIDs = append(pinIDs, p.recorder.Pin(ctx, &models.Pin{
		CID:       meta.CID,
		Kind:      enums.PinKindMetadata,
		FileName:  docName,
		MimeType:  "application/json",
		SizeBytes: meta.Size,
		Status:    enums.PinStatusPinned,
		Recipient: recipient,
	}))

	token, err := p.minter.Mint(ctx, nfts.MintInput{
		Caller:    input.Caller,
		Recipient: recipient,
		TokenURI:  meta.URL,
		Rarity:    fmt.Sprint(uint8(rarity)),
		MediaType: fmt.Sprint(uint8(media)),
	})
	if err != nil {
		p.recorder.SettlePins(ctx, pinIDs, nil)
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"file_cid":     file.CID,
			"metadata_cid": meta.CID,
			"error":        err.Error(),
		}), "mint.orphaned_pins")
		return nil, err
	}
	p.recorder.SettlePins(ctx, pinIDs, token.TokenID)

	return &Result{
		Token:       token,
		FileCID:     file.CID,
		MetadataCID: meta.CID,
		MediaURL:    file.URL,
		MetadataURL: meta.URL,
		MimeType:    mimeType,
	}, nil
}
