// Package archive guarda copias de auditoría de los XML firmados y las respuestas de SIFEN.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jhoicas/sifen-dte/pkg/config"
)

// Archive puerto de archivo. Put sobrescribe si la clave existe.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// PutObjectAPI subconjunto del cliente S3 usado aquí.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive implementa Archive sobre un bucket S3.
type S3Archive struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archive carga la configuración AWS por defecto (env, perfil o rol) con la región indicada.
func NewS3Archive(ctx context.Context, cfg config.S3Config) (*S3Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("cargar configuración AWS: %w", err)
	}
	return NewS3ArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// NewS3ArchiveWithClient construye el archivo con un cliente dado.
func NewS3ArchiveWithClient(client PutObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Put sube el objeto bajo prefix/key.
func (a *S3Archive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	objectKey := key
	if a.prefix != "" {
		objectKey = path.Join(a.prefix, key)
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("subir %s a s3://%s: %w", objectKey, a.bucket, err)
	}
	return nil
}

// Nop descarta todo. Se usa cuando no hay bucket configurado.
type Nop struct{}

// Put no hace nada.
func (Nop) Put(context.Context, string, []byte, string) error { return nil }

// DocumentKey clave de un artefacto del documento: <cdc>/<nombre>.
func DocumentKey(cdc, name string) string {
	return path.Join(cdc, name)
}
