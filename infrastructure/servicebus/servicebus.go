package servicebus

import (
	"context"
	"errors"
	"os"

	"brandhub/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects with SERVICEBUS_CONNECTION_STRING when set,
// otherwise with the default Azure credential chain against namespace.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if conn := os.Getenv("SERVICEBUS_CONNECTION_STRING"); conn != "" {
		return azservicebus.NewClientFromConnectionString(conn, nil)
	}
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating azure credential")
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}
