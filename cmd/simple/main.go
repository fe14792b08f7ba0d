// Function simple loads the portal environment and hands over to package simple.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sayshey/clientportal/pkg/simple"
	"github.com/sayshey/clientportal/pkg/portal"
)

var env *portal.Env

func init() {
	env = portal.FromEnv(context.Background())
}

func handler(ctx context.Context, req *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return simple.NewHandler(env).Handle(ctx, req)
}

func main() {
	lambda.Start(handler)
}
