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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/paymatch/paymatch/api/model"
)

// RegisterDevice returns the new device with its credential. This is the only
// response that ever contains the credential.
func (a Api) RegisterDevice(c *gin.Context) {
	var newDevice model2.RegisterDevice
	if err := c.ShouldBindJSON(&newDevice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := newDevice.ValidateRegisterDevice(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	device, credential, err := a.paymatch.RegisterDevice(c.Request.Context(), newDevice.MerchantID, newDevice.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model2.RegisteredDevice{Device: device, Credential: credential})
}

func (a Api) GetDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := a.paymatch.GetDevice(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) RevokeDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	action, ok := bindOperatorAction(c)
	if !ok {
		return
	}

	if err := a.paymatch.RevokeDevice(c.Request.Context(), id, action.Actor); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"device_id": id, "revoked": true})
}
