package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/game --output domain/game --outpkg gamemock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/player --output domain/player --outpkg playermock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Sender --dir ../domain/notification --output domain/notification --outpkg notificationmock --filename sender_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Renderer --dir ../domain/souvenir --output domain/souvenir --outpkg souvenirmock --filename renderer_mock.go
